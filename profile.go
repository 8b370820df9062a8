package vitalkeep

import "math"

type GoalType string

const (
	GoalWater    GoalType = "water"
	GoalSteps    GoalType = "steps"
	GoalWeight   GoalType = "weight"
	GoalSleep    GoalType = "sleep"
	GoalExercise GoalType = "exercise"
)

type VitalType string

const (
	VitalHeartRate        VitalType = "heart_rate"
	VitalBloodPressure    VitalType = "blood_pressure"
	VitalTemperature      VitalType = "temperature"
	VitalWeight           VitalType = "weight"
	VitalBloodSugar       VitalType = "blood_sugar"
	VitalOxygenSaturation VitalType = "oxygen_saturation"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Medication struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate,omitempty"`
	Instructions string `json:"instructions"`
}

type HealthGoal struct {
	Id      string   `json:"id"`
	Type    GoalType `json:"type"`
	Target  float64  `json:"target"`
	Current float64  `json:"current"`
	Unit    string   `json:"unit"`
}

// Progress returns current/target clamped to [0, 1]. Goals without a
// positive target or with a non-numeric value have no progress.
func (g HealthGoal) Progress() float64 {
	if !(g.Target > 0) {
		return 0
	}
	p := g.Current / g.Target
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Single vital sign reading e.g. heart rate measured after a walk.
type VitalSign struct {
	Id    string    `json:"id"`
	Type  VitalType `json:"type"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
	Date  string    `json:"date"`
	Time  string    `json:"time"`
}

type Appointment struct {
	Id         string            `json:"id"`
	DoctorName string            `json:"doctorName"`
	Specialty  string            `json:"specialty"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Type       string            `json:"type"`
	Status     AppointmentStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
}

// UserProfile is the whole health record of the single application user.
// Values are treated as immutable once handed out by the profile store:
// slices are shared between successive versions and must be copied before
// being changed.
type UserProfile struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"dateOfBirth"`
	Gender            string `json:"gender"`
	Address           string `json:"address"`
	EmergencyContact  string `json:"emergencyContact"`
	BloodType         string `json:"bloodType"`
	Height            string `json:"height"`
	Weight            string `json:"weight"`
	PreferredLanguage string `json:"preferredLanguage"`
	Notifications     bool   `json:"notifications"`

	MedicalConditions string `json:"medicalConditions"`
	Allergies         string `json:"allergies"`

	CurrentMedications []Medication  `json:"currentMedications"`
	HealthGoals        []HealthGoal  `json:"healthGoals"`
	VitalSigns         []VitalSign   `json:"vitalSigns"`
	Appointments       []Appointment `json:"appointments"`
}

// LatestVitalSign returns the most recently appended reading of given type.
func (p UserProfile) LatestVitalSign(vitalType VitalType) (VitalSign, bool) {
	for i := len(p.VitalSigns) - 1; i >= 0; i-- {
		if p.VitalSigns[i].Type == vitalType {
			return p.VitalSigns[i], true
		}
	}
	return VitalSign{}, false
}

func (p UserProfile) AppointmentsByStatus(status AppointmentStatus) []Appointment {
	found := make([]Appointment, 0, len(p.Appointments))
	for _, a := range p.Appointments {
		if a.Status == status {
			found = append(found, a)
		}
	}
	return found
}

// DefaultProfile returns the profile used when nothing (or nothing readable)
// is stored yet. Every call returns fresh slices.
func DefaultProfile() UserProfile {
	return UserProfile{
		FirstName:         "John",
		LastName:          "Doe",
		Email:             "john.doe@example.com",
		Phone:             "+1 (555) 123-4567",
		DateOfBirth:       "1985-06-15",
		Gender:            "male",
		Address:           "123 Main Street, Springfield",
		EmergencyContact:  "Jane Doe, +1 (555) 987-6543",
		BloodType:         "O+",
		Height:            "180 cm",
		Weight:            "75 kg",
		PreferredLanguage: "en",
		Notifications:     true,
		MedicalConditions: "Mild hypertension",
		Allergies:         "Penicillin",
		CurrentMedications: []Medication{
			{
				Id:           "1",
				Name:         "Lisinopril",
				Dosage:       "10mg",
				Frequency:    "Once daily",
				StartDate:    "2024-01-01",
				Instructions: "Take in the morning with water",
			},
			{
				Id:           "2",
				Name:         "Vitamin D",
				Dosage:       "1000 IU",
				Frequency:    "Once daily",
				StartDate:    "2024-02-15",
				Instructions: "Take with food",
			},
		},
		HealthGoals: []HealthGoal{
			{Id: "1", Type: GoalWater, Target: 8, Current: 5, Unit: "glasses"},
			{Id: "2", Type: GoalSteps, Target: 10000, Current: 6500, Unit: "steps"},
			{Id: "3", Type: GoalWeight, Target: 72, Current: 75, Unit: "kg"},
		},
		VitalSigns: []VitalSign{
			{Id: "1", Type: VitalHeartRate, Value: 72, Unit: "bpm", Date: "2024-03-01", Time: "08:00"},
			{Id: "2", Type: VitalBloodPressure, Value: 120, Unit: "mmHg", Date: "2024-03-01", Time: "08:05"},
		},
		Appointments: []Appointment{
			{
				Id:         "1",
				DoctorName: "Dr. Sarah Smith",
				Specialty:  "Cardiology",
				Date:       "2024-03-20",
				Time:       "10:30",
				Type:       "Follow-up",
				Status:     AppointmentScheduled,
				Notes:      "Bring blood pressure log",
			},
		},
	}
}
