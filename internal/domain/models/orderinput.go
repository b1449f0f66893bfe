package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// surveyDateLayouts are the accepted wire formats for dateOfSurvey.
var surveyDateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseSurveyDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
func ParseSurveyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range surveyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid survey date %q", s)
}

// OrderInput is the create payload submitted by the survey form.
//
// Hazard flags arrive as *bool because the form may omit them. Normalize
// turns every missing flag into false before validation runs, so the
// "required" tags on the flags hold for any normalized input.
type OrderInput struct {
	DateOfSurvey        string   `json:"dateOfSurvey" validate:"required,surveydate"`
	Surveyors           []string `json:"surveyors" validate:"required,min=1,max=20,dive,required,max=120"`
	SpaceName           string   `json:"spaceName" validate:"required,max=200"`
	Building            string   `json:"building" validate:"required,max=200"`
	LocationDescription string   `json:"locationDescription" validate:"required,max=2000"`
	SpaceDescription    string   `json:"spaceDescription" validate:"max=2000"`
	LocationID          string   `json:"locationId" validate:"omitempty,objectid"`
	BuildingID          string   `json:"buildingId" validate:"omitempty,objectid"`

	Technician string `json:"technician" validate:"max=120"`
	AssignedTo string `json:"assignedTo" validate:"max=120"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status     string `json:"status" validate:"omitempty,oneof=draft pending"`

	ConfinedSpace                  *bool `json:"confinedSpace" validate:"required"`
	PermitRequired                 *bool `json:"permitRequired" validate:"required"`
	AtmosphericHazard              *bool `json:"atmosphericHazard" validate:"required"`
	EngulfmentHazard               *bool `json:"engulfmentHazard" validate:"required"`
	ConfigurationHazard            *bool `json:"configurationHazard" validate:"required"`
	OtherRecognizedHazards         *bool `json:"otherRecognizedHazards" validate:"required"`
	PPERequired                    *bool `json:"ppeRequired" validate:"required"`
	ForcedAirVentilationSufficient *bool `json:"forcedAirVentilationSufficient" validate:"required"`
	DedicatedAirMonitor            *bool `json:"dedicatedAirMonitor" validate:"required"`
	WarningSignPosted              *bool `json:"warningSignPosted" validate:"required"`
	OtherPeopleWorkingNearSpace    *bool `json:"otherPeopleWorkingNearSpace" validate:"required"`
	CanOthersSeeIntoSpace          *bool `json:"canOthersSeeIntoSpace" validate:"required"`
	ContractorsEnterSpace          *bool `json:"contractorsEnterSpace" validate:"required"`

	EntryRequirements              string `json:"entryRequirements" validate:"max=2000"`
	AtmosphericHazardDescription   string `json:"atmosphericHazardDescription" validate:"max=2000"`
	EngulfmentHazardDescription    string `json:"engulfmentHazardDescription" validate:"max=2000"`
	ConfigurationHazardDescription string `json:"configurationHazardDescription" validate:"max=2000"`
	OtherHazardsDescription        string `json:"otherHazardsDescription" validate:"max=2000"`
	PPEList                        string `json:"ppeList" validate:"max=2000"`

	NumberOfEntryPoints int      `json:"numberOfEntryPoints" validate:"min=0,max=1000"`
	Notes               string   `json:"notes" validate:"max=5000"`
	ImageURLs           []string `json:"imageUrls" validate:"max=50,dive,imageurl"`
}

// flags returns pointers to every hazard flag field of in.
func (in *OrderInput) flags() []**bool {
	return []**bool{
		&in.ConfinedSpace,
		&in.PermitRequired,
		&in.AtmosphericHazard,
		&in.EngulfmentHazard,
		&in.ConfigurationHazard,
		&in.OtherRecognizedHazards,
		&in.PPERequired,
		&in.ForcedAirVentilationSufficient,
		&in.DedicatedAirMonitor,
		&in.WarningSignPosted,
		&in.OtherPeopleWorkingNearSpace,
		&in.CanOthersSeeIntoSpace,
		&in.ContractorsEnterSpace,
	}
}

// Normalize trims text fields and coerces every missing hazard flag to false.
func (in OrderInput) Normalize() OrderInput {
	for _, f := range in.flags() {
		if *f == nil {
			v := false
			*f = &v
		}
	}

	in.DateOfSurvey = strings.TrimSpace(in.DateOfSurvey)
	in.SpaceName = strings.TrimSpace(in.SpaceName)
	in.Building = strings.TrimSpace(in.Building)
	in.LocationDescription = strings.TrimSpace(in.LocationDescription)
	in.SpaceDescription = strings.TrimSpace(in.SpaceDescription)
	in.LocationID = strings.TrimSpace(in.LocationID)
	in.BuildingID = strings.TrimSpace(in.BuildingID)
	in.Technician = strings.TrimSpace(in.Technician)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	in.Priority = strings.ToLower(strings.TrimSpace(in.Priority))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))

	surveyors := make([]string, 0, len(in.Surveyors))
	for _, s := range in.Surveyors {
		if s = strings.TrimSpace(s); s != "" {
			surveyors = append(surveyors, s)
		}
	}
	in.Surveyors = surveyors
	return in
}

// ToOrder builds the typed Order from a normalized, validated input.
// Identifiers, ownership and workflow history are left for the caller.
func (in OrderInput) ToOrder() (Order, error) {
	date, err := ParseSurveyDate(in.DateOfSurvey)
	if err != nil {
		return Order{}, err
	}

	o := Order{
		DateOfSurvey:        date,
		Surveyors:           in.Surveyors,
		SpaceName:           in.SpaceName,
		Building:            in.Building,
		LocationDescription: in.LocationDescription,
		SpaceDescription:    in.SpaceDescription,
		Technician:          in.Technician,
		AssignedTo:          in.AssignedTo,
		Priority:            Priority(in.Priority),
		Status:              OrderStatus(in.Status),
		NumberOfEntryPoints: in.NumberOfEntryPoints,
		Notes:               in.Notes,
		ImageURLs:           in.ImageURLs,
		Hazards: Hazards{
			ConfinedSpace:                  deref(in.ConfinedSpace),
			PermitRequired:                 deref(in.PermitRequired),
			AtmosphericHazard:              deref(in.AtmosphericHazard),
			EngulfmentHazard:               deref(in.EngulfmentHazard),
			ConfigurationHazard:            deref(in.ConfigurationHazard),
			OtherRecognizedHazards:         deref(in.OtherRecognizedHazards),
			PPERequired:                    deref(in.PPERequired),
			ForcedAirVentilationSufficient: deref(in.ForcedAirVentilationSufficient),
			DedicatedAirMonitor:            deref(in.DedicatedAirMonitor),
			WarningSignPosted:              deref(in.WarningSignPosted),
			OtherPeopleWorkingNearSpace:    deref(in.OtherPeopleWorkingNearSpace),
			CanOthersSeeIntoSpace:          deref(in.CanOthersSeeIntoSpace),
			ContractorsEnterSpace:          deref(in.ContractorsEnterSpace),

			EntryRequirements:              in.EntryRequirements,
			AtmosphericHazardDescription:   in.AtmosphericHazardDescription,
			EngulfmentHazardDescription:    in.EngulfmentHazardDescription,
			ConfigurationHazardDescription: in.ConfigurationHazardDescription,
			OtherHazardsDescription:        in.OtherHazardsDescription,
			PPEList:                        in.PPEList,
		},
	}
	if o.Priority == "" {
		o.Priority = PriorityMedium
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Surveyors == nil {
		o.Surveyors = []string{}
	}
	if o.ImageURLs == nil {
		o.ImageURLs = []string{}
	}
	if in.LocationID != "" {
		if oid, err := primitive.ObjectIDFromHex(in.LocationID); err == nil {
			o.LocationID = &oid
		}
	}
	if in.BuildingID != "" {
		if oid, err := primitive.ObjectIDFromHex(in.BuildingID); err == nil {
			o.BuildingID = &oid
		}
	}
	return o, nil
}

func deref(b *bool) bool {
	return b != nil && *b
}

// OrderPatch is a partial update. A nil field leaves the stored value alone;
// hazard flags are NOT coerced here, since nil means "unchanged".
type OrderPatch struct {
	DateOfSurvey        *string   `json:"dateOfSurvey" validate:"omitempty,surveydate"`
	Surveyors           *[]string `json:"surveyors" validate:"omitnil,min=1,max=20,dive,required,max=120"`
	SpaceName           *string   `json:"spaceName" validate:"omitnil,required,max=200"`
	Building            *string   `json:"building" validate:"omitnil,required,max=200"`
	LocationDescription *string   `json:"locationDescription" validate:"omitnil,required,max=2000"`
	SpaceDescription    *string   `json:"spaceDescription" validate:"omitempty,max=2000"`

	Technician *string `json:"technician" validate:"omitempty,max=120"`
	AssignedTo *string `json:"assignedTo" validate:"omitempty,max=120"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status     *string `json:"status" validate:"omitempty,oneof=draft pending approved in-progress completed cancelled on-hold"`
	Comments   *string `json:"comments" validate:"omitempty,max=1000"`

	ConfinedSpace                  *bool `json:"confinedSpace"`
	PermitRequired                 *bool `json:"permitRequired"`
	AtmosphericHazard              *bool `json:"atmosphericHazard"`
	EngulfmentHazard               *bool `json:"engulfmentHazard"`
	ConfigurationHazard            *bool `json:"configurationHazard"`
	OtherRecognizedHazards         *bool `json:"otherRecognizedHazards"`
	PPERequired                    *bool `json:"ppeRequired"`
	ForcedAirVentilationSufficient *bool `json:"forcedAirVentilationSufficient"`
	DedicatedAirMonitor            *bool `json:"dedicatedAirMonitor"`
	WarningSignPosted              *bool `json:"warningSignPosted"`
	OtherPeopleWorkingNearSpace    *bool `json:"otherPeopleWorkingNearSpace"`
	CanOthersSeeIntoSpace          *bool `json:"canOthersSeeIntoSpace"`
	ContractorsEnterSpace          *bool `json:"contractorsEnterSpace"`

	EntryRequirements              *string `json:"entryRequirements" validate:"omitempty,max=2000"`
	AtmosphericHazardDescription   *string `json:"atmosphericHazardDescription" validate:"omitempty,max=2000"`
	EngulfmentHazardDescription    *string `json:"engulfmentHazardDescription" validate:"omitempty,max=2000"`
	ConfigurationHazardDescription *string `json:"configurationHazardDescription" validate:"omitempty,max=2000"`
	OtherHazardsDescription        *string `json:"otherHazardsDescription" validate:"omitempty,max=2000"`
	PPEList                        *string `json:"ppeList" validate:"omitempty,max=2000"`

	NumberOfEntryPoints *int    `json:"numberOfEntryPoints" validate:"omitempty,min=0,max=1000"`
	Notes               *string `json:"notes" validate:"omitempty,max=5000"`
}

// Normalize trims every present text field and lowercases status and
// priority. Run it before validation so a blank required field cannot pass
// as a run of spaces.
func (p OrderPatch) Normalize() OrderPatch {
	for _, f := range []**string{
		&p.DateOfSurvey, &p.SpaceName, &p.Building, &p.LocationDescription,
		&p.SpaceDescription, &p.Technician, &p.AssignedTo, &p.Comments,
		&p.EntryRequirements, &p.AtmosphericHazardDescription, &p.EngulfmentHazardDescription,
		&p.ConfigurationHazardDescription, &p.OtherHazardsDescription, &p.PPEList, &p.Notes,
	} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	for _, f := range []**string{&p.Status, &p.Priority} {
		if *f != nil {
			v := strings.ToLower(strings.TrimSpace(**f))
			*f = &v
		}
	}
	if p.Surveyors != nil {
		surveyors := make([]string, 0, len(*p.Surveyors))
		for _, s := range *p.Surveyors {
			if s = strings.TrimSpace(s); s != "" {
				surveyors = append(surveyors, s)
			}
		}
		p.Surveyors = &surveyors
	}
	return p
}

// Fields returns the $set document for every non-status field present in p.
// Status is handled separately because it goes through the transition guard.
func (p OrderPatch) Fields() (bson.M, error) {
	set := bson.M{}

	if p.DateOfSurvey != nil {
		d, err := ParseSurveyDate(*p.DateOfSurvey)
		if err != nil {
			return nil, err
		}
		set["date_of_survey"] = d
	}
	if p.Surveyors != nil {
		set["surveyors"] = *p.Surveyors
	}
	if p.Priority != nil {
		set["priority"] = Priority(strings.ToLower(*p.Priority))
	}
	if p.NumberOfEntryPoints != nil {
		set["number_of_entry_points"] = *p.NumberOfEntryPoints
	}

	text := map[string]*string{
		"space_name":                       p.SpaceName,
		"building":                         p.Building,
		"location_description":             p.LocationDescription,
		"space_description":                p.SpaceDescription,
		"technician":                       p.Technician,
		"assigned_to":                      p.AssignedTo,
		"entry_requirements":               p.EntryRequirements,
		"atmospheric_hazard_description":   p.AtmosphericHazardDescription,
		"engulfment_hazard_description":    p.EngulfmentHazardDescription,
		"configuration_hazard_description": p.ConfigurationHazardDescription,
		"other_hazards_description":        p.OtherHazardsDescription,
		"ppe_list":                         p.PPEList,
		"notes":                            p.Notes,
	}
	for key, v := range text {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}

	flags := map[string]*bool{
		"confined_space":                    p.ConfinedSpace,
		"permit_required":                   p.PermitRequired,
		"atmospheric_hazard":                p.AtmosphericHazard,
		"engulfment_hazard":                 p.EngulfmentHazard,
		"configuration_hazard":              p.ConfigurationHazard,
		"other_recognized_hazards":          p.OtherRecognizedHazards,
		"ppe_required":                      p.PPERequired,
		"forced_air_ventilation_sufficient": p.ForcedAirVentilationSufficient,
		"dedicated_air_monitor":             p.DedicatedAirMonitor,
		"warning_sign_posted":               p.WarningSignPosted,
		"other_people_working_near_space":   p.OtherPeopleWorkingNearSpace,
		"can_others_see_into_space":         p.CanOthersSeeIntoSpace,
		"contractors_enter_space":           p.ContractorsEnterSpace,
	}
	for key, v := range flags {
		if v != nil {
			set[key] = *v
		}
	}

	return set, nil
}
