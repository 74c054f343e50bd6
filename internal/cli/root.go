package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"checkout-service/internal/database"
	"checkout-service/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Opener открывает базу лениво: help и ошибки флагов не требуют подключения.
type Opener func() (*gorm.DB, error)

type RootOptions struct {
	Open Opener
	Log  *zap.Logger

	db *gorm.DB
}

func (o *RootOptions) DB() (*gorm.DB, error) {
	if o.db != nil {
		return o.db, nil
	}
	db, err := o.Open()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	o.db = db
	return db, nil
}

// Close закрывает базу, если команда её открывала.
func (o *RootOptions) Close() {
	if o.db != nil {
		database.CloseDB(o.db, o.Log)
		o.db = nil
	}
}

func (o *RootOptions) repo() (*repository.Repository, error) {
	db, err := o.DB()
	if err != nil {
		return nil, err
	}
	return repository.New(db), nil
}

func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checkout-admin",
		Short:         "Администрирование остатков и заказов checkout-service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	return cmd
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
