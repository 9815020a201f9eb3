package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docapi/internal/app"
	"github.com/conduit-lang/docapi/internal/cli/ui"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/web/router"
)

var routesResource string

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes the configuration declares",
		Long: `Build every declared resource against an in-memory store and print
the bound routes with their verb and middleware count.

Examples:
  docapi routes
  docapi routes --resource /users`,
		RunE: runRoutes,
	}

	cmd.Flags().StringVarP(&routesResource, "resource", "r", "", "Only show the routes of this resource path")

	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, noColor))
		return err
	}

	// Routes do not depend on the backing store.
	cfg.Tracking.Redis.Addr = ""
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStore(store.NewMemory()))
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	routes := a.Routes()
	if routesResource != "" {
		resource := router.Join(cfg.Server.APIPrefix, routesResource)
		routes = filterRoutes(routes, resource)
		if len(routes) == 0 {
			paths := make([]string, 0, len(cfg.Resources))
			for _, r := range cfg.Resources {
				paths = append(paths, r.Path)
			}
			fmt.Fprint(cmd.ErrOrStderr(), ui.ResourceNotFoundError(routesResource, ui.Suggest(routesResource, paths, 3), noColor))
			return errors.New("unknown resource " + routesResource)
		}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Pattern < routes[j].Pattern
	})

	out := cmd.OutOrStdout()
	ui.Header(out, "Routes", noColor)
	table := ui.NewTable(out, []string{"METHOD", "PATTERN", "VERB", "MIDDLEWARE", "NAME"}, noColor)
	for _, r := range routes {
		mw := ""
		if r.Verb != "" {
			mw = strconv.Itoa(r.Middleware)
		}
		table.AddRow(r.Method, r.Pattern, r.Verb, mw, r.Name)
	}
	table.Render()
	return nil
}

func filterRoutes(routes []router.RouteInfo, resource string) []router.RouteInfo {
	var out []router.RouteInfo
	for _, r := range routes {
		if r.Resource == resource {
			out = append(out, r)
		}
	}
	return out
}
