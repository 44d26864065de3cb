package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/store"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage provider listings",
}

var providersImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Upsert providers from a YAML file",
	Long: `Upsert providers from a YAML file of the form:

  providers:
    - name: Chelsea Prints
      zip: "10001"
      materials: [PLA, PETG]

Providers without an id get a random one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		st, err := store.Open(cmd.Context(), cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := importProviders(cmd.Context(), f, st)
		if err != nil {
			return err
		}
		logging.Info().Int("providers", n).Str("file", args[0]).Msg("providers imported")
		return nil
	},
}

func init() {
	providersCmd.AddCommand(providersImportCmd)
}

type providerFile struct {
	Providers []store.Provider `yaml:"providers"`
}

// importProviders decodes a provider file and upserts every entry. ZIP+4
// codes are reduced to five digits; malformed ZIPs fail the import before
// anything is written.
func importProviders(ctx context.Context, r io.Reader, st store.ProviderStore) (int, error) {
	var file providerFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode providers: %w", err)
	}

	for i := range file.Providers {
		p := &file.Providers[i]
		zip, ok := gazetteer.NormalizeZip(p.Zip)
		if !ok {
			return 0, fmt.Errorf("provider %d (%s): malformed zip %q", i+1, p.Name, p.Zip)
		}
		p.Zip = zip
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
	}

	for i, p := range file.Providers {
		if err := st.Upsert(ctx, p); err != nil {
			return i, fmt.Errorf("upsert provider %s: %w", p.ID, err)
		}
	}
	return len(file.Providers), nil
}
