package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asmwalk/internal/app"
)

type walkOptions struct {
	HideFramework   bool
	SearchPath      string
	ProbePaths      []string
	Format          string
	RuntimeOrder    string
	FrameworkTokens []string
	Color           bool
}

func newWalkCommand() *cobra.Command {
	opts := walkOptions{}
	cmd := &cobra.Command{
		Use:   "walk <module>",
		Short: "Walk a module's references and print them as a tree",
		Args:  moduleArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWalk(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.HideFramework, "hide-framework", true, "Skip modules signed by platform framework keys")
	cmd.Flags().StringVar(&opts.SearchPath, "search-path", "", "Fallback directory (defaults to the module's directory)")
	cmd.Flags().StringSliceVar(&opts.ProbePaths, "probe-path", nil, "Directories probed before the search path")
	cmd.Flags().StringVar(&opts.Format, "format", "auto", "Module format: auto, pe or manifest")
	cmd.Flags().StringVar(&opts.RuntimeOrder, "runtime-order", "ordinal", "Runtime version comparison: ordinal or semantic")
	cmd.Flags().StringSliceVar(&opts.FrameworkTokens, "framework-token", nil, "Additional public key tokens treated as framework")
	cmd.Flags().BoolVar(&opts.Color, "color", false, "Color tree lines by status when writing to a terminal")

	_ = viper.BindPFlag("hide_framework", cmd.Flags().Lookup("hide-framework"))
	_ = viper.BindPFlag("search_path", cmd.Flags().Lookup("search-path"))
	_ = viper.BindPFlag("probe_paths", cmd.Flags().Lookup("probe-path"))
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("runtime_order", cmd.Flags().Lookup("runtime-order"))
	_ = viper.BindPFlag("framework_tokens", cmd.Flags().Lookup("framework-token"))
	_ = viper.BindPFlag("color", cmd.Flags().Lookup("color"))

	return cmd
}

func runWalk(ctx context.Context, cmd *cobra.Command, module string, opts walkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = log.Logger.WithContext(ctx)
	service := newAppService()
	if cmd != nil {
		service.Out = cmd.OutOrStdout()
	}
	result, err := service.Walk(ctx, app.WalkRequest{
		ModulePath:      module,
		HideFramework:   resolveBool(cmd, opts.HideFramework, "hide_framework", "hide-framework"),
		SearchPath:      resolveString(cmd, opts.SearchPath, "search_path", "search-path"),
		ProbePaths:      resolveStrings(cmd, opts.ProbePaths, "probe_paths", "probe-path"),
		Format:          resolveString(cmd, opts.Format, "format", "format"),
		RuntimeOrder:    resolveString(cmd, opts.RuntimeOrder, "runtime_order", "runtime-order"),
		FrameworkTokens: resolveStrings(cmd, opts.FrameworkTokens, "framework_tokens", "framework-token"),
		Color:           resolveBool(cmd, opts.Color, "color", "color"),
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().
		Str("root", result.Root.Identity()).
		Int("failed", result.Summary.Failed).
		Msg("walk finished")
	return nil
}
