package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/voxterm/voxterm/pkg/audio"
	"github.com/voxterm/voxterm/pkg/audio/portaudio"
	"github.com/voxterm/voxterm/pkg/cli"
	"github.com/voxterm/voxterm/pkg/conversation"
	"github.com/voxterm/voxterm/pkg/realtime"
	"github.com/voxterm/voxterm/pkg/session"
	"github.com/voxterm/voxterm/pkg/usage"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Start a live voice conversation",
	Long: `Start a live voice conversation.

Speak into the microphone; the assistant's voice reply plays back with a
live transcript. Type a message and press enter to send text instead.
Speaking or sending while the assistant is talking interrupts it.

Keys:
  enter    send the typed message
  ctrl+d   toggle microphone mute
  ctrl+c   hang up and quit`,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	provider := app.Settings.SelectedProvider(ctx)
	if !app.Settings.HasEffectiveKey(ctx, provider) {
		cli.PrintWarning("no API key for %s; the gateway must hold one ('voxterm config key %s ...')", provider, provider)
	}

	logWriter := cli.NewLogWriter(200)
	if err := app.setupLogging(logWriter); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	scheduler := audio.NewScheduler(nil)
	client := realtime.NewClient(app.GatewayURL(ctx))
	dial := func(ctx context.Context, config *realtime.ConnectConfig) (session.Transport, error) {
		return client.Connect(ctx, config)
	}
	devices := hardwareDevices{input: app.Config.Audio.Input, output: app.Config.Audio.Output}

	bridge := newUIBridge()

	// The flow owns event dispatch; the callbacks close over it.
	var flow *session.Flow
	conn := session.NewConnector(dial, devices, scheduler, session.Callbacks{
		OnEvent: func(ctx context.Context, ev *realtime.ServerEvent) {
			flow.HandleEvent(ctx, ev)
		},
		OnClose:       func() { bridge.send(sessionClosedMsg{}) },
		OnError:       func(err error) { bridge.send(sessionErrMsg{err}) },
		OnMicDenied:   func(err error) { bridge.send(micDeniedMsg{err}) },
		OnMuteChanged: func(muted bool) { bridge.send(muteChangedMsg(muted)) },
	})
	router := conversation.NewRouter(bridge, conn, scheduler, app.History, usage.DefaultCatalog(), conn.ActiveMeta)
	flow = session.NewFlow(conn, router, app.Settings, app.History)

	model := newConnectModel(ctx, flow, logWriter)
	p := tea.NewProgram(model, tea.WithAltScreen())
	bridge.attach(p)

	_, runErr := p.Run()
	flow.Disconnect(ctx)
	return runErr
}
