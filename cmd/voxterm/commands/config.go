package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxterm/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage client settings",
	Long: `Manage client settings stored in the local database.

Each subcommand prints the current value when called without arguments
and updates it when given one.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		provider := app.Settings.SelectedProvider(ctx)
		fmt.Printf("provider:  %s\n", provider)
		fmt.Printf("model:     %s\n", app.Settings.Model(ctx, provider))
		fmt.Printf("voice:     %s\n", app.Settings.Voice(ctx))
		fmt.Printf("gateway:   %s\n", app.GatewayURL(ctx))
		replay := "off"
		if app.Settings.ReplayEnabled(ctx) {
			replay = "on"
		}
		fmt.Printf("replay:    %s\n", replay)
		if key := app.Settings.SavedKey(ctx, provider); key != "" {
			fmt.Printf("key:       %s\n", cli.MaskAPIKey(key))
		} else {
			fmt.Printf("key:       (none stored, falls back to %s_API_KEY or the gateway)\n", strings.ToUpper(provider))
		}
		if prompt := app.Settings.SystemPrompt(ctx); prompt != "" {
			fmt.Printf("prompt:    %s\n", prompt)
		}
		return nil
	},
}

var configProviderCmd = &cobra.Command{
	Use:   "provider [name]",
	Short: "Get or set the provider (openai, azure)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 0 {
			fmt.Println(app.Settings.SelectedProvider(ctx))
			return nil
		}
		if err := app.Settings.SetProvider(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("provider set to %s", strings.ToLower(strings.TrimSpace(args[0])))
		return nil
	},
}

var configKeyCmd = &cobra.Command{
	Use:   "key <provider> [key]",
	Short: "Get or set the API key for a provider",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		provider := args[0]
		if len(args) == 1 {
			key := app.Settings.SavedKey(ctx, provider)
			if key == "" {
				fmt.Println("(none stored)")
				return nil
			}
			fmt.Println(cli.MaskAPIKey(key))
			return nil
		}
		if err := app.Settings.SetKey(ctx, provider, args[1]); err != nil {
			return err
		}
		if strings.TrimSpace(args[1]) == "" {
			cli.PrintSuccess("key for %s cleared", provider)
		} else {
			cli.PrintSuccess("key for %s saved", provider)
		}
		return nil
	},
}

var configModelCmd = &cobra.Command{
	Use:   "model <provider> [model]",
	Short: "Get or set the model (OpenAI) or deployment (Azure) for a provider",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 1 {
			fmt.Println(app.Settings.Model(ctx, args[0]))
			return nil
		}
		if err := app.Settings.SetModel(ctx, args[0], args[1]); err != nil {
			return err
		}
		cli.PrintSuccess("model for %s set to %s", args[0], args[1])
		return nil
	},
}

var configVoiceCmd = &cobra.Command{
	Use:   "voice [name]",
	Short: "Get or set the assistant voice",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 0 {
			fmt.Println(app.Settings.Voice(ctx))
			return nil
		}
		if err := app.Settings.SetVoice(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("voice set to %s", args[0])
		return nil
	},
}

var promptClear bool

var configPromptCmd = &cobra.Command{
	Use:   "prompt [text]",
	Short: "Get, set or clear the system prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if promptClear {
			if err := app.Settings.SetSystemPrompt(ctx, ""); err != nil {
				return err
			}
			cli.PrintSuccess("prompt cleared")
			return nil
		}
		if len(args) == 0 {
			if p := app.Settings.SystemPrompt(ctx); p != "" {
				fmt.Println(p)
			} else {
				fmt.Println("(none)")
			}
			return nil
		}
		if err := app.Settings.SetSystemPrompt(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("prompt saved")
		return nil
	},
}

var configReplayCmd = &cobra.Command{
	Use:   "replay [on|off]",
	Short: "Get or set context replay after reconnect",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 0 {
			if app.Settings.ReplayEnabled(ctx) {
				fmt.Println("on")
			} else {
				fmt.Println("off")
			}
			return nil
		}
		switch args[0] {
		case "on":
			err = app.Settings.SetReplayEnabled(ctx, true)
		case "off":
			err = app.Settings.SetReplayEnabled(ctx, false)
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		if err != nil {
			return err
		}
		cli.PrintSuccess("replay %s", args[0])
		return nil
	},
}

var configGatewayCmd = &cobra.Command{
	Use:   "gateway [url]",
	Short: "Get or set the gateway URL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 0 {
			fmt.Println(app.GatewayURL(ctx))
			return nil
		}
		if err := app.Settings.SetGatewayURL(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("gateway set to %s", args[0])
		return nil
	},
}

func init() {
	configPromptCmd.Flags().BoolVar(&promptClear, "clear", false, "clear the system prompt")

	configCmd.AddCommand(configShowCmd, configProviderCmd, configKeyCmd,
		configModelCmd, configVoiceCmd, configPromptCmd, configReplayCmd,
		configGatewayCmd)
	rootCmd.AddCommand(configCmd)
}
