package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"asmwalk/internal/app"
)

type inspectOptions struct {
	Format          string
	FrameworkTokens []string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <module>",
		Short: "Show a module's identity, runtime and declared references",
		Args:  moduleArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "auto", "Module format: auto, pe or manifest")
	cmd.Flags().StringSliceVar(&opts.FrameworkTokens, "framework-token", nil, "Additional public key tokens treated as framework")
	return cmd
}

func runInspect(cmd *cobra.Command, module string, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(cmd.Context(), app.InspectRequest{
		ModulePath:      module,
		Format:          resolveString(cmd, opts.Format, "format", "format"),
		FrameworkTokens: resolveStrings(cmd, opts.FrameworkTokens, "framework_tokens", "framework-token"),
	})
	if err != nil {
		return err
	}
	printInspect(cmd.OutOrStdout(), result)
	return nil
}

func printInspect(out io.Writer, result app.InspectResult) {
	self := result.Module.Reference
	fmt.Fprintf(out, "name: %s\n", self.Name)
	fmt.Fprintf(out, "version: %s\n", self.Version)
	if self.Culture != "" {
		fmt.Fprintf(out, "culture: %s\n", self.Culture)
	}
	fmt.Fprintf(out, "public key token: %s\n", tokenOrNull(self.TokenHex()))
	fmt.Fprintf(out, "runtime: %s\n", result.Module.RuntimeVersion)
	fmt.Fprintf(out, "framework: %t\n", result.Framework)
	fmt.Fprintf(out, "references: %d\n", len(result.References))
	for _, ref := range result.References {
		marker := ""
		if ref.Framework {
			marker = " [framework]"
		}
		fmt.Fprintf(out, "- %s (token=%s)%s\n", ref.Reference.DisplayName(), tokenOrNull(ref.Reference.TokenHex()), marker)
	}
}

func tokenOrNull(token string) string {
	if token == "" {
		return "null"
	}
	return token
}
