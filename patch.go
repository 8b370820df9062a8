package vitalkeep

import "slices"

// ProfilePatch is a partial profile. Nil fields are left untouched by Apply.
// A non-nil empty slice replaces the sequence with an empty one.
type ProfilePatch struct {
	FirstName         *string `json:"firstName,omitempty"`
	LastName          *string `json:"lastName,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	DateOfBirth       *string `json:"dateOfBirth,omitempty"`
	Gender            *string `json:"gender,omitempty"`
	Address           *string `json:"address,omitempty"`
	EmergencyContact  *string `json:"emergencyContact,omitempty"`
	BloodType         *string `json:"bloodType,omitempty"`
	Height            *string `json:"height,omitempty"`
	Weight            *string `json:"weight,omitempty"`
	PreferredLanguage *string `json:"preferredLanguage,omitempty"`
	Notifications     *bool   `json:"notifications,omitempty"`

	MedicalConditions *string `json:"medicalConditions,omitempty"`
	Allergies         *string `json:"allergies,omitempty"`

	CurrentMedications []Medication  `json:"currentMedications,omitempty"`
	HealthGoals        []HealthGoal  `json:"healthGoals,omitempty"`
	VitalSigns         []VitalSign   `json:"vitalSigns,omitempty"`
	Appointments       []Appointment `json:"appointments,omitempty"`
}

type patchField struct {
	name  string
	set   bool
	apply func(p *UserProfile)
}

func (pp ProfilePatch) fields() []patchField {
	str := func(name string, v *string, dst func(p *UserProfile) *string) patchField {
		return patchField{name: name, set: v != nil, apply: func(p *UserProfile) { *dst(p) = *v }}
	}
	return []patchField{
		str("firstName", pp.FirstName, func(p *UserProfile) *string { return &p.FirstName }),
		str("lastName", pp.LastName, func(p *UserProfile) *string { return &p.LastName }),
		str("email", pp.Email, func(p *UserProfile) *string { return &p.Email }),
		str("phone", pp.Phone, func(p *UserProfile) *string { return &p.Phone }),
		str("dateOfBirth", pp.DateOfBirth, func(p *UserProfile) *string { return &p.DateOfBirth }),
		str("gender", pp.Gender, func(p *UserProfile) *string { return &p.Gender }),
		str("address", pp.Address, func(p *UserProfile) *string { return &p.Address }),
		str("emergencyContact", pp.EmergencyContact, func(p *UserProfile) *string { return &p.EmergencyContact }),
		str("bloodType", pp.BloodType, func(p *UserProfile) *string { return &p.BloodType }),
		str("height", pp.Height, func(p *UserProfile) *string { return &p.Height }),
		str("weight", pp.Weight, func(p *UserProfile) *string { return &p.Weight }),
		str("preferredLanguage", pp.PreferredLanguage, func(p *UserProfile) *string { return &p.PreferredLanguage }),
		{name: "notifications", set: pp.Notifications != nil, apply: func(p *UserProfile) { p.Notifications = *pp.Notifications }},
		str("medicalConditions", pp.MedicalConditions, func(p *UserProfile) *string { return &p.MedicalConditions }),
		str("allergies", pp.Allergies, func(p *UserProfile) *string { return &p.Allergies }),
		{name: "currentMedications", set: pp.CurrentMedications != nil, apply: func(p *UserProfile) { p.CurrentMedications = slices.Clone(pp.CurrentMedications) }},
		{name: "healthGoals", set: pp.HealthGoals != nil, apply: func(p *UserProfile) { p.HealthGoals = slices.Clone(pp.HealthGoals) }},
		{name: "vitalSigns", set: pp.VitalSigns != nil, apply: func(p *UserProfile) { p.VitalSigns = slices.Clone(pp.VitalSigns) }},
		{name: "appointments", set: pp.Appointments != nil, apply: func(p *UserProfile) { p.Appointments = slices.Clone(pp.Appointments) }},
	}
}

// Apply returns a copy of profile with every present patch field merged in.
func (pp ProfilePatch) Apply(profile UserProfile) UserProfile {
	for _, f := range pp.fields() {
		if f.set {
			f.apply(&profile)
		}
	}
	return profile
}

// FieldNames lists json names of fields present in the patch.
func (pp ProfilePatch) FieldNames() []string {
	names := make([]string, 0, 4)
	for _, f := range pp.fields() {
		if f.set {
			names = append(names, f.name)
		}
	}
	return names
}

type HealthGoalPatch struct {
	Type    *GoalType `json:"type,omitempty"`
	Target  *float64  `json:"target,omitempty"`
	Current *float64  `json:"current,omitempty"`
	Unit    *string   `json:"unit,omitempty"`
}

func (gp HealthGoalPatch) Apply(goal HealthGoal) HealthGoal {
	if gp.Type != nil {
		goal.Type = *gp.Type
	}
	if gp.Target != nil {
		goal.Target = *gp.Target
	}
	if gp.Current != nil {
		goal.Current = *gp.Current
	}
	if gp.Unit != nil {
		goal.Unit = *gp.Unit
	}
	return goal
}
