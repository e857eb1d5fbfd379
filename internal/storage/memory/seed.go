package memory

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/pricing"
)

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

type seedName struct {
	En string `yaml:"en"`
	Ar string `yaml:"ar"`
}

type seedItem struct {
	ID        string         `yaml:"id"`
	Name      seedName       `yaml:"name"`
	BasePrice string         `yaml:"base_price"`
	Active    *bool          `yaml:"active"`
	Sizes     []seedSize     `yaml:"sizes"`
	Modifiers []seedModifier `yaml:"modifiers"`
}

type seedSize struct {
	ID    string   `yaml:"id"`
	Name  seedName `yaml:"name"`
	Price string   `yaml:"price"`
}

type seedModifier struct {
	ID     string   `yaml:"id"`
	Name   seedName `yaml:"name"`
	Price  string   `yaml:"price"`
	Active *bool    `yaml:"active"`
}

// LoadMenuSeed reads a YAML menu file into the store. Items with sizes are
// flagged HasSizes automatically; active defaults to true.
func (s *Store) LoadMenuSeed(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read menu seed: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("failed to parse menu seed: %w", err)
	}

	for i, raw := range file.Items {
		item, mods, err := raw.build()
		if err != nil {
			return 0, fmt.Errorf("items[%d]: %w", i, err)
		}
		s.AddMenuItem(item)
		for _, mod := range mods {
			s.AddModifier(mod)
		}
	}
	return len(file.Items), nil
}

func (raw seedItem) build() (models.MenuItem, []models.Modifier, error) {
	id, err := uuid.Parse(raw.ID)
	if err != nil {
		return models.MenuItem{}, nil, fmt.Errorf("invalid id: %w", err)
	}
	name, err := models.NewLocalizedText(raw.Name.En, raw.Name.Ar)
	if err != nil {
		return models.MenuItem{}, nil, err
	}
	base, err := parsePrice(raw.BasePrice)
	if err != nil {
		return models.MenuItem{}, nil, fmt.Errorf("base_price: %w", err)
	}

	item := models.MenuItem{
		ID:        id,
		Name:      name,
		BasePrice: base,
		HasSizes:  len(raw.Sizes) > 0,
		Active:    raw.Active == nil || *raw.Active,
	}

	for _, rs := range raw.Sizes {
		size := models.ItemSize{ItemID: id}
		if size.ID, err = uuid.Parse(rs.ID); err != nil {
			return models.MenuItem{}, nil, fmt.Errorf("size id: %w", err)
		}
		if size.Name, err = models.NewLocalizedText(rs.Name.En, rs.Name.Ar); err != nil {
			return models.MenuItem{}, nil, err
		}
		if size.Price, err = parsePrice(rs.Price); err != nil {
			return models.MenuItem{}, nil, fmt.Errorf("size price: %w", err)
		}
		item.Sizes = append(item.Sizes, size)
	}

	mods := make([]models.Modifier, 0, len(raw.Modifiers))
	for _, rm := range raw.Modifiers {
		mod := models.Modifier{ItemID: id, Active: rm.Active == nil || *rm.Active}
		if mod.ID, err = uuid.Parse(rm.ID); err != nil {
			return models.MenuItem{}, nil, fmt.Errorf("modifier id: %w", err)
		}
		if mod.Name, err = models.NewLocalizedText(rm.Name.En, rm.Name.Ar); err != nil {
			return models.MenuItem{}, nil, err
		}
		if mod.Price, err = parsePrice(rm.Price); err != nil {
			return models.MenuItem{}, nil, fmt.Errorf("modifier price: %w", err)
		}
		mods = append(mods, mod)
	}

	return item, mods, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("price %s is negative", s)
	}
	if !pricing.IsCurrency(d) {
		return decimal.Zero, fmt.Errorf("price %s has more than %d decimal places", s, pricing.CurrencyPlaces)
	}
	return d, nil
}
