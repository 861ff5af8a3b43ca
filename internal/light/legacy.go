package light

import "github.com/JadenB/Luxamp-sub000/internal/serial"

// PacketSender writes one legacy command.
type PacketSender interface {
	SendPacket(op, a, b, c byte)
}

// LegacyOutput drives a legacy controller through color and power commands.
type LegacyOutput struct {
	dev PacketSender
}

func NewLegacyOutput(dev PacketSender) *LegacyOutput {
	return &LegacyOutput{dev: dev}
}

func (o *LegacyOutput) SendColor(r, g, b byte) {
	o.dev.SendPacket(serial.LegacyOpColor, r, g, b)
}

func (o *LegacyOutput) SetPower(on bool) {
	var v byte
	if on {
		v = 1
	}
	o.dev.SendPacket(serial.LegacyOpPower, v, 0, 0)
}
