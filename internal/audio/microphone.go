package audio

import (
	"context"
	"fmt"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/gordonklaus/portaudio"
)

// Microphone captures the default input device in mono.
type Microphone struct {
	slot *Slot
}

func NewMicrophone(slot *Slot) *Microphone {
	return &Microphone{slot: slot}
}

func (m *Microphone) Name() string { return "Microphone" }

// Run captures until ctx is done.
func (m *Microphone) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing audio input: %w", err)
	}
	defer portaudio.Terminate()

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, FrameSize, func(in []float32) {
		m.slot.Write(in)
	})
	if err != nil {
		return fmt.Errorf("opening audio input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio input: %w", err)
	}
	log := logging.For("audio")
	log.Info("capturing microphone")

	<-ctx.Done()
	if err := stream.Stop(); err != nil {
		log.WithError(err).Warn("stopping audio input")
	}
	return nil
}
