package cli

import (
	"fmt"
	"time"

	"checkout-service/internal/cleanup"
	"checkout-service/internal/migrate"
	"checkout-service/internal/models"
	"checkout-service/internal/repository"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	mo := migrate.DefaultMigrateOptions()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить схему",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.DB()
			if err != nil {
				return err
			}
			if err := migrate.MigrateCheckoutDB(ctxOf(cmd), db, opts.Log, mo); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&mo.CreateChecks, "checks", mo.CreateChecks, "create CHECK constraints (postgres)")
	cmd.Flags().BoolVar(&mo.CreateIndexes, "indexes", mo.CreateIndexes, "create composite indexes (postgres)")
	cmd.Flags().BoolVar(&mo.CreateUpdatedAtTrigger, "triggers", mo.CreateUpdatedAtTrigger, "create updated_at triggers (postgres)")
	return cmd
}

func NewItemCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Позиции меню и их остатки",
	}
	cmd.AddCommand(newItemUpsertCommand(opts))
	cmd.AddCommand(newItemGetCommand(opts))
	cmd.AddCommand(newItemListCommand(opts))
	cmd.AddCommand(newItemSetInventoryCommand(opts))
	return cmd
}

// inventoryFlag: отрицательное значение = безлимитная позиция.
func inventoryFlag(n int32) (bool, *int32) {
	if n < 0 {
		return false, nil
	}
	return true, &n
}

func newItemUpsertCommand(opts *RootOptions) *cobra.Command {
	var (
		name      string
		price     int64
		inventory int32
	)
	cmd := &cobra.Command{
		Use:   "upsert <id>",
		Short: "Создать или обновить позицию",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if price < 0 {
				return fmt.Errorf("price must be >= 0")
			}
			repo, err := opts.repo()
			if err != nil {
				return err
			}

			enabled, inv := inventoryFlag(inventory)
			item := &models.MenuItem{
				ID:               args[0],
				Name:             name,
				PriceCents:       price,
				InventoryEnabled: enabled,
				Inventory:        inv,
			}
			if item.Name == "" {
				item.Name = item.ID
			}
			if err := repo.Items.Upsert(ctxOf(cmd), item); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().Int64Var(&price, "price", 0, "price in cents")
	cmd.Flags().Int32Var(&inventory, "inventory", -1, "stock on hand, -1 for unlimited")
	return cmd
}

type itemView struct {
	*models.MenuItem
	CommittedUnits int64 `json:"committed_units"`
}

func newItemGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Показать позицию и сколько единиц ушло в заказы",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo()
			if err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			item, err := repo.Items.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("item %q not found", args[0])
			}
			committed, err := repo.OrderItems.SumCommitted(ctx, item.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), itemView{MenuItem: item, CommittedUnits: committed})
		},
	}
}

func newItemListCommand(opts *RootOptions) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Список позиций",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo()
			if err != nil {
				return err
			}
			items, err := repo.Items.List(ctxOf(cmd), limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newItemSetInventoryCommand(opts *RootOptions) *cobra.Command {
	var inventory int32
	cmd := &cobra.Command{
		Use:   "set-inventory <id>",
		Short: "Выставить остаток позиции",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo()
			if err != nil {
				return err
			}
			enabled, inv := inventoryFlag(inventory)
			ok, err := repo.Items.SetInventory(ctxOf(cmd), args[0], enabled, inv)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("item %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inventory of %s updated\n", args[0])
			return nil
		},
	}
	cmd.Flags().Int32Var(&inventory, "inventory", -1, "stock on hand, -1 for unlimited")
	return cmd
}

type statsView struct {
	Orders    int64 `json:"orders"`
	Cancelled int64 `json:"cancelled"`
	Confirmed int64 `json:"confirmed"`
}

func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Счётчики заказов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo()
			if err != nil {
				return err
			}
			ctx := ctxOf(cmd)

			var v statsView
			if v.Orders, err = repo.Orders.Count(ctx); err != nil {
				return err
			}
			for status, dst := range map[models.OrderStatus]*int64{
				models.OrderStatusCancelled: &v.Cancelled,
				models.OrderStatusConfirmed: &v.Confirmed,
			} {
				st := status
				_, total, err := repo.Orders.List(ctx, repository.OrderListFilter{Status: &st, Limit: 1})
				if err != nil {
					return err
				}
				*dst = total
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge-idempotency",
		Short: "Удалить старые ключи идемпотентности",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			repo, err := opts.repo()
			if err != nil {
				return err
			}
			// резервы живут в памяти сервиса, здесь чистим только таблицу ключей
			svc := cleanup.NewCleanupService(nil, repo.Idempotency, olderThan, opts.Log)
			n, err := svc.PurgeIdempotencyKeys(ctxOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d keys\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "retention window")
	return cmd
}
