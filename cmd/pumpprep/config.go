package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/YuminosukeSato/pumpprep/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or create pumpprep configuration",
	}

	var output string
	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration to a yaml file",
		Annotations: map[string]string{"skip-config": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}
			if err := cfgpkg.Save(cfgpkg.Default(), output); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVar(&output, "output", cfgpkg.DefaultFile, "destination file")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := *a.cfg
			c.Postgres.DSN = mask(c.Postgres.DSN)
			b, err := yaml.Marshal(&c)
			if err != nil {
				return err
			}
			_, err = a.out.Write(b)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// mask hides DSN credentials.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if at := strings.LastIndex(s, "@"); at >= 0 {
		if scheme := strings.Index(s, "://"); scheme >= 0 && scheme+3 < at {
			return s[:scheme+3] + "****" + s[at:]
		}
	}
	return "****"
}
