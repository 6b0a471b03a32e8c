/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package conditions

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Condition Types, in the order they gate readiness
const (
	ConditionLeaderElected      = "LeaderElected"
	ConditionRelationsCreated   = "RelationsCreated"
	ConditionDatabasesAvailable = "DatabasesAvailable"
	ConditionContainerReady     = "ContainerReady"
	ConditionStorageAttached    = "StorageAttached"
	ConditionConfigStored       = "ConfigStored"
	ConditionServiceRunning     = "ServiceRunning"
	ConditionReady              = "Ready"
)

// GateConditions lists the condition types Ready is computed from, in order
var GateConditions = []string{
	ConditionLeaderElected,
	ConditionRelationsCreated,
	ConditionDatabasesAvailable,
	ConditionContainerReady,
	ConditionStorageAttached,
	ConditionConfigStored,
	ConditionServiceRunning,
}

// Reasons
const (
	ReasonSucceeded            = "Succeeded"
	ReasonNotEvaluated         = "NotEvaluated"
	ReasonNotLeader            = "NotLeader"
	ReasonRelationMissing      = "RelationMissing"
	ReasonDatabasePending      = "DatabasePending"
	ReasonContainerUnreachable = "ContainerUnreachable"
	ReasonStorageDetached      = "StorageDetached"
	ReasonArtifactMissing      = "ArtifactMissing"
	ReasonServiceStopped       = "ServiceStopped"
)

// Standard condition messages
const (
	MessageNotEvaluated  = "An earlier condition is not met"
	MessageWorkloadReady = "Workload is ready and operational"
)

// SetCondition updates a condition in the conditions slice
func SetCondition(conditions *[]metav1.Condition, conditionType string, status metav1.ConditionStatus, reason string, message string) {
	now := metav1.NewTime(time.Now())

	for i, condition := range *conditions {
		if condition.Type == conditionType {
			// Update existing condition
			if condition.Status != status || condition.Reason != reason {
				(*conditions)[i].Status = status
				(*conditions)[i].Reason = reason
				(*conditions)[i].Message = message
				(*conditions)[i].LastTransitionTime = now
			} else if condition.Message != message {
				// Update message only without changing transition time
				(*conditions)[i].Message = message
			}
			return
		}
	}

	// Add new condition
	*conditions = append(*conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// IsConditionTrue returns true if the condition is present and set to True
func IsConditionTrue(conditions []metav1.Condition, conditionType string) bool {
	for _, condition := range conditions {
		if condition.Type == conditionType {
			return condition.Status == metav1.ConditionTrue
		}
	}
	return false
}

// GetCondition returns the condition with the given type, or nil if not found
func GetCondition(conditions []metav1.Condition, conditionType string) *metav1.Condition {
	for i, condition := range conditions {
		if condition.Type == conditionType {
			return &conditions[i]
		}
	}
	return nil
}

// ComputeReadyCondition determines the Ready condition from the gate
// conditions. The first gate that is not True decides reason and message.
func ComputeReadyCondition(conditions []metav1.Condition) (metav1.ConditionStatus, string, string) {
	for _, conditionType := range GateConditions {
		if IsConditionTrue(conditions, conditionType) {
			continue
		}
		if cond := GetCondition(conditions, conditionType); cond != nil && cond.Status == metav1.ConditionFalse {
			return metav1.ConditionFalse, cond.Reason, cond.Message
		}
		return metav1.ConditionFalse, ReasonNotEvaluated, MessageNotEvaluated
	}

	return metav1.ConditionTrue, ReasonSucceeded, MessageWorkloadReady
}
