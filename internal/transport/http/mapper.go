package http

import (
	"github.com/vovakirdan/wirecall/internal/core"
	"github.com/vovakirdan/wirecall/internal/signal"
)

func signalEnvelope(msg signal.Message) signal.Envelope {
	return signal.Envelope{
		Type:     signal.EnvelopeTypeSignal,
		Protocol: signal.ProtocolVersion,
		Signal:   &msg,
	}
}

func errorEnvelope(err *core.CoreError) signal.Envelope {
	return signal.Envelope{
		Type:     signal.EnvelopeTypeError,
		Protocol: signal.ProtocolVersion,
		Error:    &signal.Error{Code: err.Code, Msg: err.Message},
	}
}
