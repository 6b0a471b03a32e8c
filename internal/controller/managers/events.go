package managers

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
)

// Event types
const (
	// EventTypeNormal indicates a normal event
	EventTypeNormal = "Normal"
	// EventTypeWarning indicates a warning event
	EventTypeWarning = "Warning"
)

// Event reasons emitted by the managers
const (
	EventReasonArtifactWritten = "ArtifactWritten"
	EventReasonArtifactError   = "ArtifactError"
	EventReasonPlanApplied     = "PlanApplied"
	EventReasonPlanError       = "PlanError"
	EventReasonRestarted       = "ServiceRestarted"
	EventReasonPublished       = "EndpointPublished"
	EventReasonPublishError    = "PublishError"
	EventReasonReady           = "Ready"
	EventReasonNotReady        = "NotReady"
)

func emit(recorder record.EventRecorder, subject runtime.Object, eventType, reason, messageFmt string, args ...interface{}) {
	if recorder == nil || subject == nil {
		return
	}
	recorder.Eventf(subject, eventType, reason, messageFmt, args...)
}
