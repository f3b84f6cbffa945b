//go:build darwin

// Package permissions asks the OS for access to the microphone.
package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

import (
	"errors"

	"github.com/rs/zerolog"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// ErrMicrophone is returned when recording has not been authorized.
var ErrMicrophone = errors.New("microphone permission not granted")

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// EnsureMicrophone requests access if it has not been decided yet. Capture
// would otherwise record silence.
func EnsureMicrophone(log zerolog.Logger) error {
	switch status := CheckMicrophone(); status {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		log.Warn().Msg("Microphone permission required, requesting access")
		RequestMicrophone()
		return ErrMicrophone
	default:
		log.Error().Int("status", status).Msg("Microphone access denied: System Settings → Privacy & Security → Microphone")
		return ErrMicrophone
	}
}
