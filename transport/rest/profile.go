package rest

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/vitalkeep/vitalkeep"
	"github.com/vitalkeep/vitalkeep/state"
)

// ProfileStore is the part of state.ProfileStore served over http.
type ProfileStore interface {
	Phase() state.Phase
	Ready() bool
	Profile() (vitalkeep.UserProfile, bool)

	UpdateProfile(patch vitalkeep.ProfilePatch) error
	AddMedication(med vitalkeep.Medication) error
	RemoveMedication(id string) error
	AddVitalSign(v vitalkeep.VitalSign) error
	AddAppointment(a vitalkeep.Appointment) error
	UpdateHealthGoal(id string, patch vitalkeep.HealthGoalPatch) error
}

var _ ProfileStore = (*state.ProfileStore)(nil)

type ProfileController struct {
	Store ProfileStore
}

func (c *ProfileController) InstallTo(app *fiber.App) {
	app.Get("/ready", c.serveReady)

	app.Get("/profile", c.serveProfile)
	app.Patch("/profile", c.serveUpdateProfile)
	app.Post("/medications", c.serveAddMedication)
	app.Delete("/medications/:medication_id", c.serveRemoveMedication)
	app.Post("/vitals", c.serveAddVitalSign)
	app.Get("/vitals/latest/:vital_type", c.serveLatestVitalSign)
	app.Post("/appointments", c.serveAddAppointment)
	app.Get("/appointments", c.serveAppointments)
	app.Patch("/goals/:goal_id", c.serveUpdateHealthGoal)
}

func (c *ProfileController) serveReady(ctx *fiber.Ctx) error {
	phase := c.Store.Phase()
	return ctx.JSON(map[string]interface{}{
		"phase": phase.String(),
		"ready": phase == state.PhaseReady,
	})
}

func (c *ProfileController) profile() (vitalkeep.UserProfile, error) {
	profile, ok := c.Store.Profile()
	if !ok {
		return profile, errNotReady
	}
	return profile, nil
}

func (c *ProfileController) serveProfile(ctx *fiber.Ctx) error {
	profile, err := c.profile()
	if err != nil {
		return err
	}
	return ctx.JSON(profile)
}

func (c *ProfileController) serveUpdateProfile(ctx *fiber.Ctx) error {
	var patch vitalkeep.ProfilePatch
	if err := parseBody(ctx, &patch); err != nil {
		return err
	}
	if err := c.Store.UpdateProfile(patch); err != nil {
		return storeError("update profile", err)
	}
	return c.serveProfile(ctx)
}

func (c *ProfileController) serveAddMedication(ctx *fiber.Ctx) error {
	var med vitalkeep.Medication
	if err := parseBody(ctx, &med); err != nil {
		return err
	}
	if med.Id == "" {
		med.Id = uuid.New().String()
	}
	if err := c.Store.AddMedication(med); err != nil {
		return storeError("add medication", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(med)
}

func (c *ProfileController) serveRemoveMedication(ctx *fiber.Ctx) error {
	id, err := url.PathUnescape(ctx.Params("medication_id"))
	if err != nil || id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid medication id")
	}
	if err := c.Store.RemoveMedication(id); err != nil {
		return storeError("remove medication", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *ProfileController) serveAddVitalSign(ctx *fiber.Ctx) error {
	var v vitalkeep.VitalSign
	if err := parseBody(ctx, &v); err != nil {
		return err
	}
	if v.Id == "" {
		v.Id = uuid.New().String()
	}
	if err := c.Store.AddVitalSign(v); err != nil {
		return storeError("add vital sign", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(v)
}

func (c *ProfileController) serveLatestVitalSign(ctx *fiber.Ctx) error {
	profile, err := c.profile()
	if err != nil {
		return err
	}
	v, ok := profile.LatestVitalSign(vitalkeep.VitalType(ctx.Params("vital_type")))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no vital sign of given type")
	}
	return ctx.JSON(v)
}

func (c *ProfileController) serveAddAppointment(ctx *fiber.Ctx) error {
	var a vitalkeep.Appointment
	if err := parseBody(ctx, &a); err != nil {
		return err
	}
	if a.Id == "" {
		a.Id = uuid.New().String()
	}
	if err := c.Store.AddAppointment(a); err != nil {
		return storeError("add appointment", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(a)
}

func (c *ProfileController) serveAppointments(ctx *fiber.Ctx) error {
	profile, err := c.profile()
	if err != nil {
		return err
	}
	status := ctx.Query("status")
	if status == "" {
		appointments := profile.Appointments
		if appointments == nil {
			appointments = []vitalkeep.Appointment{}
		}
		return ctx.JSON(appointments)
	}
	return ctx.JSON(profile.AppointmentsByStatus(vitalkeep.AppointmentStatus(status)))
}

func (c *ProfileController) serveUpdateHealthGoal(ctx *fiber.Ctx) error {
	id, err := url.PathUnescape(ctx.Params("goal_id"))
	if err != nil || id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal id")
	}
	var patch vitalkeep.HealthGoalPatch
	if err := parseBody(ctx, &patch); err != nil {
		return err
	}
	if err := c.Store.UpdateHealthGoal(id, patch); err != nil {
		return storeError("update health goal", err)
	}

	profile, err := c.profile()
	if err != nil {
		return err
	}
	for _, g := range profile.HealthGoals {
		if g.Id == id {
			type GoalResponse struct {
				Goal     vitalkeep.HealthGoal `json:"goal"`
				Progress float64              `json:"progress"`
			}
			return ctx.JSON(GoalResponse{Goal: g, Progress: g.Progress()})
		}
	}
	return fiber.NewError(fiber.StatusNotFound, "health goal not found")
}
