package demand

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds задают формулу и границы уровней.
type Thresholds struct {
	CartWeight     float64 `yaml:"cart_weight"`
	ScarcityWeight float64 `yaml:"scarcity_weight"`
	OrderWeight    float64 `yaml:"order_weight"`

	// CriticalCarts: столько корзин всегда дают critical, независимо от остатка.
	CriticalCarts   int `yaml:"critical_carts"`
	HighCarts       int `yaml:"high_carts"`
	OrderSaturation int `yaml:"order_saturation"`

	CriticalScore float64 `yaml:"critical_score"`
	HighScore     float64 `yaml:"high_score"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CartWeight:      0.6,
		ScarcityWeight:  0.3,
		OrderWeight:     0.1,
		CriticalCarts:   10,
		HighCarts:       5,
		OrderSaturation: 20,
		CriticalScore:   0.85,
		HighScore:       0.5,
	}
}

// LoadThresholds читает YAML поверх значений по умолчанию. Пустой путь: только дефолты.
func LoadThresholds(path string) (Thresholds, error) {
	th := DefaultThresholds()
	if path == "" {
		return th, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read demand thresholds: %w", err)
	}
	if err := yaml.Unmarshal(raw, &th); err != nil {
		return th, fmt.Errorf("parse demand thresholds: %w", err)
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}

func (th Thresholds) Validate() error {
	if th.CartWeight < 0 || th.ScarcityWeight < 0 || th.OrderWeight < 0 {
		return fmt.Errorf("demand thresholds: weights must be non-negative")
	}
	if sum := th.CartWeight + th.ScarcityWeight + th.OrderWeight; sum <= 0 || sum > 1.0000001 {
		return fmt.Errorf("demand thresholds: weights sum %.3f out of (0,1]", sum)
	}
	if th.CriticalCarts < 2 || th.HighCarts < 2 || th.HighCarts > th.CriticalCarts {
		return fmt.Errorf("demand thresholds: need 2 <= high_carts <= critical_carts")
	}
	if th.OrderSaturation <= 0 {
		return fmt.Errorf("demand thresholds: order_saturation must be positive")
	}
	if th.HighScore <= 0 || th.HighScore > th.CriticalScore || th.CriticalScore > 1 {
		return fmt.Errorf("demand thresholds: need 0 < high_score <= critical_score <= 1")
	}
	return nil
}
