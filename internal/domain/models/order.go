package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is one confined-space inspection record (a work order).
//
// InternalID, UniqueID and WorkOrderID are assigned once at creation and are
// never written again. WorkflowHistory only ever grows.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InternalID  string             `bson:"internal_id" json:"internalId"`
	UniqueID    string             `bson:"unique_id" json:"uniqueId"`
	WorkOrderID string             `bson:"work_order_id" json:"workOrderId"`

	// Ownership
	UserID         primitive.ObjectID `bson:"user_id" json:"userId"`
	CreatedBy      string             `bson:"created_by" json:"createdBy"`
	LastModifiedBy string             `bson:"last_modified_by" json:"lastModifiedBy"`
	AssignedTo     string             `bson:"assigned_to,omitempty" json:"assignedTo,omitempty"`
	Technician     string             `bson:"technician,omitempty" json:"technician,omitempty"` // free text, not a user reference

	Priority Priority    `bson:"priority" json:"priority"`
	Status   OrderStatus `bson:"status" json:"status"`

	// Survey
	DateOfSurvey        time.Time           `bson:"date_of_survey" json:"dateOfSurvey"`
	Surveyors           []string            `bson:"surveyors" json:"surveyors"`
	SpaceName           string              `bson:"space_name" json:"spaceName"`
	Building            string              `bson:"building" json:"building"`
	LocationDescription string              `bson:"location_description" json:"locationDescription"`
	SpaceDescription    string              `bson:"space_description,omitempty" json:"spaceDescription,omitempty"`
	LocationID          *primitive.ObjectID `bson:"location_id,omitempty" json:"locationId,omitempty"`
	BuildingID          *primitive.ObjectID `bson:"building_id,omitempty" json:"buildingId,omitempty"`

	Hazards `bson:",inline"`

	NumberOfEntryPoints int      `bson:"number_of_entry_points" json:"numberOfEntryPoints"`
	Notes               string   `bson:"notes,omitempty" json:"notes,omitempty"`
	ImageURLs           []string `bson:"image_urls" json:"imageUrls"`

	WorkflowHistory []WorkflowEntry `bson:"workflow_history" json:"workflowHistory"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Hazards holds the hazard/safety flags and their free-text companions.
// Every flag is a plain bool: a survey without an answer records false.
type Hazards struct {
	ConfinedSpace                  bool `bson:"confined_space" json:"confinedSpace"`
	PermitRequired                 bool `bson:"permit_required" json:"permitRequired"`
	AtmosphericHazard              bool `bson:"atmospheric_hazard" json:"atmosphericHazard"`
	EngulfmentHazard               bool `bson:"engulfment_hazard" json:"engulfmentHazard"`
	ConfigurationHazard            bool `bson:"configuration_hazard" json:"configurationHazard"`
	OtherRecognizedHazards         bool `bson:"other_recognized_hazards" json:"otherRecognizedHazards"`
	PPERequired                    bool `bson:"ppe_required" json:"ppeRequired"`
	ForcedAirVentilationSufficient bool `bson:"forced_air_ventilation_sufficient" json:"forcedAirVentilationSufficient"`
	DedicatedAirMonitor            bool `bson:"dedicated_air_monitor" json:"dedicatedAirMonitor"`
	WarningSignPosted              bool `bson:"warning_sign_posted" json:"warningSignPosted"`
	OtherPeopleWorkingNearSpace    bool `bson:"other_people_working_near_space" json:"otherPeopleWorkingNearSpace"`
	CanOthersSeeIntoSpace          bool `bson:"can_others_see_into_space" json:"canOthersSeeIntoSpace"`
	ContractorsEnterSpace          bool `bson:"contractors_enter_space" json:"contractorsEnterSpace"`

	EntryRequirements              string `bson:"entry_requirements,omitempty" json:"entryRequirements,omitempty"`
	AtmosphericHazardDescription   string `bson:"atmospheric_hazard_description,omitempty" json:"atmosphericHazardDescription,omitempty"`
	EngulfmentHazardDescription    string `bson:"engulfment_hazard_description,omitempty" json:"engulfmentHazardDescription,omitempty"`
	ConfigurationHazardDescription string `bson:"configuration_hazard_description,omitempty" json:"configurationHazardDescription,omitempty"`
	OtherHazardsDescription        string `bson:"other_hazards_description,omitempty" json:"otherHazardsDescription,omitempty"`
	PPEList                        string `bson:"ppe_list,omitempty" json:"ppeList,omitempty"`
}

// WorkflowEntry is one line of an order's audit trail.
type WorkflowEntry struct {
	Action         string      `bson:"action" json:"action"`
	PerformedBy    string      `bson:"performed_by" json:"performedBy"`
	Timestamp      time.Time   `bson:"timestamp" json:"timestamp"`
	Comments       string      `bson:"comments,omitempty" json:"comments,omitempty"`
	PreviousStatus OrderStatus `bson:"previous_status,omitempty" json:"previousStatus,omitempty"`
	NewStatus      OrderStatus `bson:"new_status,omitempty" json:"newStatus,omitempty"`
}

// Counter is a named monotonic sequence used for human-readable IDs.
type Counter struct {
	ID  string `bson:"_id" json:"id"`
	Seq int64  `bson:"seq" json:"seq"`
}
