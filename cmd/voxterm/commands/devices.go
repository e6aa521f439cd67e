package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxterm/pkg/audio"
	"github.com/voxterm/voxterm/pkg/audio/portaudio"
	"github.com/voxterm/voxterm/pkg/session"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		defer portaudio.Terminate()

		for _, d := range devices {
			marks := ""
			if d.IsDefaultInput {
				marks += " [default in]"
			}
			if d.IsDefaultOutput {
				marks += " [default out]"
			}
			fmt.Printf("%3d  %-40s in:%d out:%d @%.0fHz%s\n",
				d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, marks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

// captureFrameSize is the microphone read granularity: 20ms at the
// session rate.
const captureFrameSize = audio.SampleRate / 50

// hardwareDevices opens PortAudio streams for the session connector.
type hardwareDevices struct {
	input  int
	output int
}

func (d hardwareDevices) OpenMicrophone() (session.Microphone, error) {
	return portaudio.OpenInput(portaudio.InputConfig{
		Device:     d.input,
		SampleRate: audio.SampleRate,
		FrameSize:  captureFrameSize,
	})
}

func (d hardwareDevices) OpenSpeaker() (session.Speaker, error) {
	return portaudio.OpenOutput(portaudio.OutputConfig{
		Device:     d.output,
		SampleRate: audio.SampleRate,
	})
}
