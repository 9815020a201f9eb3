package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/docapi/internal/cli/config"
	"github.com/conduit-lang/docapi/internal/cli/ui"
)

var (
	initOutput    string
	initYes       bool
	initForce     bool
	initResources []string
)

var storeDrivers = []string{"memory", "mongo", "sqlite", "postgres"}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a docapi.yaml",
		Long: `Create a configuration file, prompting for the server port, the store
and the resources to serve.

Examples:
  docapi init
  docapi init --yes --resource /users --resource /posts
  docapi init --output ./deploy/docapi.yaml --force`,
		RunE: runInit,
	}

	cmd.Flags().StringVarP(&initOutput, "output", "o", config.FileName+".yaml", "File to write")
	cmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().StringSliceVar(&initResources, "resource", nil, "Resource path to declare (repeatable)")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initOutput); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
	}

	cfg := config.Default()
	for _, path := range initResources {
		cfg.Resources = append(cfg.Resources, config.ResourceConfig{Path: path})
	}

	if !initYes {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Write(cfg, initOutput); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, noColor))
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "wrote "+initOutput, noColor)
	return nil
}

func promptConfig(cfg *config.Config) error {
	var port string
	if err := survey.AskOne(&survey.Input{
		Message: "Port:",
		Default: strconv.Itoa(cfg.Server.Port),
	}, &port, survey.WithValidator(validatePort)); err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)

	if err := survey.AskOne(&survey.Select{
		Message: "Store:",
		Options: storeDrivers,
		Default: cfg.Store.Driver,
	}, &cfg.Store.Driver); err != nil {
		return err
	}

	if cfg.Store.Driver != "memory" {
		if err := survey.AskOne(&survey.Input{
			Message: "Connection URI:",
			Help:    "e.g. mongodb://localhost:27017, file:docapi.db, postgres://user@localhost/docapi",
		}, &cfg.Store.URI, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	for {
		more := len(cfg.Resources) == 0
		if err := survey.AskOne(&survey.Confirm{
			Message: "Add a resource?",
			Default: more,
		}, &more); err != nil {
			return err
		}
		if !more {
			return nil
		}

		r, err := promptResource()
		if err != nil {
			return err
		}
		cfg.Resources = append(cfg.Resources, r)
	}
}

func promptResource() (config.ResourceConfig, error) {
	var r config.ResourceConfig

	qs := []*survey.Question{
		{
			Name:     "path",
			Prompt:   &survey.Input{Message: "Resource path:", Help: "e.g. /users"},
			Validate: survey.ComposeValidators(survey.Required, validateResourcePath),
		},
		{
			Name:   "params",
			Prompt: &survey.Input{Message: "Filterable query keys (comma separated globs):"},
		},
		{
			Name:   "bulk",
			Prompt: &survey.Confirm{Message: "Allow bulk create?"},
		},
	}

	answers := struct {
		Path   string `survey:"path"`
		Params string `survey:"params"`
		Bulk   bool   `survey:"bulk"`
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return r, err
	}

	r.Path = answers.Path
	r.BulkPost = answers.Bulk
	for _, p := range strings.Split(answers.Params, ",") {
		if p = strings.TrimSpace(p); p != "" {
			r.QueryParams = append(r.QueryParams, p)
		}
	}
	return r, nil
}

func validatePort(ans interface{}) error {
	s, _ := ans.(string)
	port, err := strconv.Atoi(s)
	if err != nil || port < 0 || port > 65535 {
		return errors.New("port must be a number between 0 and 65535")
	}
	return nil
}

func validateResourcePath(ans interface{}) error {
	s, _ := ans.(string)
	if !strings.HasPrefix(s, "/") || (len(s) > 1 && strings.HasSuffix(s, "/")) {
		return errors.New("path must start with / and not end with /")
	}
	return nil
}
