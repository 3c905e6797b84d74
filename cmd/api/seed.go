package main

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shinyyama/inventory-backend/internal/db"
	"github.com/shinyyama/inventory-backend/internal/repository"
	"github.com/shinyyama/inventory-backend/internal/service"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Folders []seedFolder `yaml:"folders"`
	Items   []seedItem   `yaml:"items"`
}

type seedFolder struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Items       []seedItem   `yaml:"items"`
	Children    []seedFolder `yaml:"children"`
}

type seedItem struct {
	Name          string `yaml:"name"`
	Manufacturer  string `yaml:"manufacturer"`
	Category      string `yaml:"category"`
	Condition     string `yaml:"condition"`
	PurchaseDate  string `yaml:"purchaseDate"`
	PurchasePrice int64  `yaml:"purchasePrice"`
}

func newSeedCmd(a *app) *cobra.Command {
	var file, email string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a folder and item fixture for one user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := defaultSeed
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				raw = b
			}
			var fx seedFile
			if err := yaml.Unmarshal(raw, &fx); err != nil {
				return fmt.Errorf("parse fixture: %w", err)
			}

			conn, err := db.Connect(a.cfg)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			s := &seeder{
				folders: service.NewFolderService(repository.NewTransactor(conn), repository.NewFolderRepository(conn),
					repository.NewItemRepository(conn), a.log),
				items: service.NewItemService(repository.NewTransactor(conn), repository.NewItemRepository(conn),
					repository.NewFolderRepository(conn), repository.NewImageRepository(conn),
					repository.NewPriceHistoryRepository(conn), nil, a.log),
			}
			users := service.NewUserService(repository.NewUserRepository(conn), a.cfg.DefaultAIUsageLimit, a.log)

			ctx := cmd.Context()
			u, err := users.Ensure(ctx, service.Identity{AuthUID: "seed:" + email, Email: email, Name: "Seed User"})
			if err != nil {
				return fmt.Errorf("ensure user: %w", err)
			}
			s.owner = u.ID
			s.cmd = cmd

			for _, f := range fx.Folders {
				if err := s.folder(f, nil); err != nil {
					return err
				}
			}
			for _, it := range fx.Items {
				if err := s.item(it, nil); err != nil {
					return err
				}
			}
			a.log.Info("seed complete", zap.String("email", email),
				zap.Int("folders", s.folderCount), zap.Int("items", s.itemCount))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture (defaults to the built-in sample)")
	cmd.Flags().StringVar(&email, "email", "seed@example.com", "owner of the seeded data")
	return cmd
}

type seeder struct {
	cmd         *cobra.Command
	owner       uint64
	folders     service.FolderService
	items       service.ItemService
	folderCount int
	itemCount   int
}

func (s *seeder) folder(f seedFolder, parent *uint64) error {
	in := service.CreateFolderInput{Name: f.Name, ParentID: parent}
	if f.Description != "" {
		in.Description = &f.Description
	}
	v, err := s.folders.Create(s.cmd.Context(), s.owner, in)
	if err != nil {
		return fmt.Errorf("folder %q: %w", f.Name, err)
	}
	s.folderCount++
	id := v.ID
	for _, it := range f.Items {
		if err := s.item(it, &id); err != nil {
			return err
		}
	}
	for _, c := range f.Children {
		if err := s.folder(c, &id); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) item(it seedItem, folder *uint64) error {
	in := service.ItemInput{
		Name:         it.Name,
		Manufacturer: optString(it.Manufacturer),
		Category:     optString(it.Category),
		Condition:    optString(it.Condition),
		FolderID:     folder,
	}
	if it.PurchaseDate != "" {
		d, err := time.Parse(time.DateOnly, it.PurchaseDate)
		if err != nil {
			return fmt.Errorf("item %q: purchaseDate: %w", it.Name, err)
		}
		in.PurchaseDate = &d
	}
	if it.PurchasePrice > 0 {
		in.PurchasePrice = &it.PurchasePrice
	}
	if _, err := s.items.Create(s.cmd.Context(), s.owner, in); err != nil {
		return fmt.Errorf("item %q: %w", it.Name, err)
	}
	s.itemCount++
	return nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
