// cmd/portal/seed.go
//
// Catalog seeding.
//
// The seed file lists tool types in YAML:
//
//	tools:
//	  - name: Team Calendar
//	    description: Shared booking calendar.
//	    slug: team-calendar        # optional; derived from name when empty
//	    icon_category: calendar
//
// Entries whose slug already exists are skipped, so seeding is idempotent.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/catalog"
)

const defaultSeedFile = "seeds/tools.yaml"

type seedFile struct {
	Tools []seedTool `yaml:"tools"`
}

type seedTool struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Slug         string `yaml:"slug"`
	IconCategory string `yaml:"icon_category"`
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load catalog entries from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: defaultSeedFile, Usage: "seed file, relative to --root"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			a, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := seedCatalog(ctx, a, a.rootPath(cmd.String("file")))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d tool type(s) created\n", n)
			return nil
		},
	}
}

// readSeeds parses a seed file.
func readSeeds(path string) ([]catalog.CreateInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	out := make([]catalog.CreateInput, 0, len(f.Tools))
	for _, t := range f.Tools {
		slug := t.Slug
		if slug == "" {
			slug = catalog.MakeSlug(t.Name)
		}
		out = append(out, catalog.CreateInput{
			Name:         t.Name,
			Description:  t.Description,
			Slug:         slug,
			IconCategory: catalog.IconCategory(t.IconCategory),
		})
	}
	return out, nil
}

// seedCatalog creates every seed entry whose slug is not yet taken and
// returns the number created.
func seedCatalog(ctx context.Context, a *app, path string) (int, error) {
	inputs, err := readSeeds(path)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, in := range inputs {
		_, err := a.catalog.Lookup(ctx, in.Slug)
		switch {
		case err == nil:
			zap.L().Debug("seed skipped; slug exists", zap.String("slug", in.Slug))
			continue
		case !apperr.IsNotFound(err):
			return created, err
		}
		if _, err := a.catalog.CreateType(ctx, auth.System, in); err != nil {
			return created, fmt.Errorf("seed %q: %w", in.Slug, err)
		}
		created++
	}
	zap.L().Info("catalog seeded", zap.String("file", path), zap.Int("created", created))
	return created, nil
}
