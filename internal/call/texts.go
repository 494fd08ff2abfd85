package call

import (
	"fmt"
	"time"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/signal"
)

const (
	textWaiting           = "Waiting for the other party to accept..."
	textEstablishing      = "Establishing connection..."
	textAccepted          = "Call accepted, connecting..."
	textSwitchedToAudio   = "Switched to a voice call"
	textMuted             = "Microphone muted"
	textUnmuted           = "Microphone unmuted"
	textJoinFailed        = "Failed to join the call"
	textDeviceFailed      = "Unable to start the camera or microphone"
	textDeviceRecover     = "Media device stopped working"
	textNetworkPoor       = "Network is poor"
	textNetworkLost       = "Network disconnected"
	textInviteTimedOut    = "Call not answered, it has timed out"
	textNoAnswer          = "No answer, please try again later"
	textConnectTimedOut   = "Connection timed out"
	textDeviceUnavailable = "Camera or microphone not available"
)

func textInviting(sponsor domain.Member, t domain.CallType) string {
	return fmt.Sprintf("%s is inviting you to a %s call", sponsor.Label(), t.Mode())
}

func textJoined(label string) string { return label + " joined" }

func textLeft(label string) string { return label + " left" }

func textCameraOff(label string) string { return label + " turned off the camera" }

// remoteVerb is how a remote departure is announced.
func remoteVerb(k signal.Kind) string {
	switch k {
	case signal.KindCancel:
		return " cancelled the call"
	case signal.KindTimeoutCancel:
		return " call timed out"
	case signal.KindHangUp:
		return " hung up"
	case signal.KindReject:
		return " rejected the call"
	case signal.KindTimeoutReject:
		return " did not answer"
	default:
		return " left"
	}
}

// formatDuration renders mm:ss, or hh:mm:ss from one hour on.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
