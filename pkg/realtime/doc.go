// Package realtime provides a websocket client for a hosted
// speech-to-speech realtime gateway.
//
// The gateway relays a fixed JSON event protocol (plus base64 PCM16 audio
// frames) between this client and the upstream model provider. The client
// owns the socket only; microphone capture, playback scheduling, and
// conversation state live in higher layers.
//
// # Connecting
//
//	client := realtime.NewClient("https://voice.example.com")
//	session, err := client.Connect(ctx, &realtime.ConnectConfig{
//	    Provider: realtime.ProviderOpenAI,
//	    Model:    "gpt-4o-realtime-preview",
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
// # Configuring the session
//
// After the socket opens, send the session configuration frame:
//
//	err = session.UpdateSession(&realtime.SessionConfig{
//	    Voice:        "alloy",
//	    Instructions: "You are a helpful assistant.",
//	})
//
// # Receiving events
//
// Use the Events iterator to consume server events:
//
//	for event, err := range session.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    switch event.Type {
//	    case realtime.EventTypeResponseAudioDelta:
//	        play(event.Audio)
//	    case realtime.EventTypeResponseAudioTranscriptDelta:
//	        fmt.Print(event.Delta)
//	    }
//	}
package realtime
