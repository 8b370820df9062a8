package state

import (
	"slices"

	"github.com/vitalkeep/vitalkeep"
)

type Op string

const (
	OpLoad              Op = "load"
	OpProfileUpdated    Op = "profile_updated"
	OpMedicationAdded   Op = "medication_added"
	OpMedicationRemoved Op = "medication_removed"
	OpVitalSignAdded    Op = "vital_sign_added"
	OpAppointmentAdded  Op = "appointment_added"
	OpHealthGoalUpdated Op = "health_goal_updated"
)

// Change is delivered to subscribers after the profile was replaced.
type Change struct {
	Op      Op
	Profile vitalkeep.UserProfile
	// Describes the mutation input e.g. id of the added record.
	Data map[string]interface{}
}

// appended never writes into the backing array shared with older profiles.
func appended[T any](s []T, v T) []T {
	return append(slices.Clip(s), v)
}

// UpdateProfile shallow-merges the present patch fields into the profile.
func (s *ProfileStore) UpdateProfile(patch vitalkeep.ProfilePatch) error {
	data := map[string]interface{}{"fields": patch.FieldNames()}
	return s.mutate(OpProfileUpdated, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		return patch.Apply(p), true
	})
}

func (s *ProfileStore) AddMedication(med vitalkeep.Medication) error {
	data := map[string]interface{}{"id": med.Id, "name": med.Name}
	return s.mutate(OpMedicationAdded, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		p.CurrentMedications = appended(p.CurrentMedications, med)
		return p, true
	})
}

// RemoveMedication drops every medication with given id.
func (s *ProfileStore) RemoveMedication(id string) error {
	data := map[string]interface{}{"id": id}
	return s.mutate(OpMedicationRemoved, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		kept := make([]vitalkeep.Medication, 0, len(p.CurrentMedications))
		for _, med := range p.CurrentMedications {
			if med.Id != id {
				kept = append(kept, med)
			}
		}
		if len(kept) == len(p.CurrentMedications) {
			return p, false
		}
		data["removed"] = len(p.CurrentMedications) - len(kept)
		p.CurrentMedications = kept
		return p, true
	})
}

func (s *ProfileStore) AddVitalSign(v vitalkeep.VitalSign) error {
	data := map[string]interface{}{"id": v.Id, "type": string(v.Type), "value": v.Value, "unit": v.Unit}
	return s.mutate(OpVitalSignAdded, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		p.VitalSigns = appended(p.VitalSigns, v)
		return p, true
	})
}

func (s *ProfileStore) AddAppointment(a vitalkeep.Appointment) error {
	data := map[string]interface{}{"id": a.Id, "doctorName": a.DoctorName, "date": a.Date}
	return s.mutate(OpAppointmentAdded, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		p.Appointments = appended(p.Appointments, a)
		return p, true
	})
}

// UpdateHealthGoal merges patch into goals with given id. Unknown id is a no-op.
func (s *ProfileStore) UpdateHealthGoal(id string, patch vitalkeep.HealthGoalPatch) error {
	data := map[string]interface{}{"id": id}
	return s.mutate(OpHealthGoalUpdated, data, func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool) {
		if !slices.ContainsFunc(p.HealthGoals, func(g vitalkeep.HealthGoal) bool { return g.Id == id }) {
			return p, false
		}
		goals := slices.Clone(p.HealthGoals)
		for i, g := range goals {
			if g.Id == id {
				goals[i] = patch.Apply(g)
			}
		}
		p.HealthGoals = goals
		return p, true
	})
}
