package state

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vitalkeep/vitalkeep"
	"github.com/vitalkeep/vitalkeep/inmem"
	"github.com/vitalkeep/vitalkeep/mock"
)

func loadedStore(t *testing.T, storage vitalkeep.Storage) *ProfileStore {
	s := NewProfileStore(storage)
	s.Load(context.Background())
	t.Cleanup(s.Close)
	return s
}

func currentProfile(t *testing.T, s *ProfileStore) vitalkeep.UserProfile {
	p, ok := s.Profile()
	assert.True(t, ok, "profile should be available")
	return p
}

func TestLoadDefaultWhenNothingStored(t *testing.T) {
	assert := assert.New(t)

	s := NewProfileStore(inmem.NewStorage())
	defer s.Close()
	assert.Equal(PhaseUninitialized, s.Phase())
	_, ok := s.Profile()
	assert.False(ok)

	s.Load(context.Background())
	assert.True(s.Ready())
	assert.Equal(vitalkeep.DefaultProfile(), currentProfile(t, s))
}

func TestLoadStoredProfile(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	stored := vitalkeep.DefaultProfile()
	stored.FirstName = "Ada"
	stored.VitalSigns = append(stored.VitalSigns, vitalkeep.VitalSign{
		Id: "9", Type: vitalkeep.VitalTemperature, Value: 36.6, Unit: "C", Date: "2024-04-01", Time: "07:30",
	})
	raw, err := vitalkeep.EncodeProfile(stored)
	if !assert.NoError(err) {
		return
	}
	storage := inmem.NewStorage()
	if !assert.NoError(storage.Set(ctx, ProfileKey, raw)) {
		return
	}

	s := loadedStore(t, storage)
	assert.Equal(stored, currentProfile(t, s))
}

func TestLoadCorruptedFallsBackToDefault(t *testing.T) {
	for _, raw := range []string{`{"firstName": `, `null`, `"john"`, `{"healthGoals": "many"}`} {
		t.Run(raw, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			storage := inmem.NewStorage()
			if !assert.NoError(storage.Set(ctx, ProfileKey, raw)) {
				return
			}

			var s *ProfileStore
			assert.NotPanics(func() {
				s = loadedStore(t, storage)
			})
			assert.Equal(vitalkeep.DefaultProfile(), currentProfile(t, s))

			// corrupted value is superseded in memory only
			if !assert.NoError(s.Flush(ctx)) {
				return
			}
			v, err := storage.Get(ctx, ProfileKey)
			if assert.NoError(err) {
				assert.Equal(raw, v)
			}
		})
	}
}

func TestLoadReadErrorFallsBackToDefault(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, mock.Storage{
		GetFn: func(ctx context.Context, key string) (string, error) {
			return "", errors.New("quota exceeded")
		},
		SetFn: func(ctx context.Context, key string, value string) error {
			return nil
		},
	})
	assert.Equal(vitalkeep.DefaultProfile(), currentProfile(t, s))
}

func TestLoadRunsOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	gets := 0
	s := NewProfileStore(mock.Storage{
		GetFn: func(ctx context.Context, key string) (string, error) {
			gets++
			return "", vitalkeep.ErrKeyNotFound
		},
		SetFn: func(ctx context.Context, key string, value string) error {
			return nil
		},
	})
	defer s.Close()

	s.Load(ctx)
	s.Load(ctx)
	assert.Equal(1, gets)
}

func TestWaitReady(t *testing.T) {
	assert := assert.New(t)

	s := NewProfileStore(inmem.NewStorage())
	defer s.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(s.WaitReady(ctx), context.DeadlineExceeded)
	}

	go s.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if assert.NoError(s.WaitReady(ctx)) {
		assert.Equal(PhaseReady, s.Phase())
	}
}

func TestMutationsBeforeReady(t *testing.T) {
	assert := assert.New(t)

	writes := 0
	s := NewProfileStore(mock.Storage{
		GetFn: func(ctx context.Context, key string) (string, error) {
			return "", vitalkeep.ErrKeyNotFound
		},
		SetFn: func(ctx context.Context, key string, value string) error {
			writes++
			return nil
		},
	})
	defer s.Close()

	email := "x@example.com"
	assert.ErrorIs(s.UpdateProfile(vitalkeep.ProfilePatch{Email: &email}), vitalkeep.ErrProfileNotReady)
	assert.ErrorIs(s.AddMedication(vitalkeep.Medication{Id: "3"}), vitalkeep.ErrProfileNotReady)
	assert.ErrorIs(s.RemoveMedication("1"), vitalkeep.ErrProfileNotReady)
	assert.ErrorIs(s.AddVitalSign(vitalkeep.VitalSign{Id: "3"}), vitalkeep.ErrProfileNotReady)
	assert.ErrorIs(s.AddAppointment(vitalkeep.Appointment{Id: "2"}), vitalkeep.ErrProfileNotReady)
	assert.ErrorIs(s.UpdateHealthGoal("1", vitalkeep.HealthGoalPatch{}), vitalkeep.ErrProfileNotReady)
	assert.NoError(s.Flush(context.Background()))

	s.Load(context.Background())
	if !assert.NoError(s.Flush(context.Background())) {
		return
	}
	assert.Equal(0, writes)
	// mutations issued before ready are not replayed
	assert.Equal(vitalkeep.DefaultProfile(), currentProfile(t, s))
}

func TestUsageOutsideProviderPanics(t *testing.T) {
	assert := assert.New(t)

	var nilStore *ProfileStore
	assert.PanicsWithValue(vitalkeep.ErrStoreNotProvided, func() {
		nilStore.Profile()
	})
	assert.PanicsWithValue(vitalkeep.ErrStoreNotProvided, func() {
		_ = (&ProfileStore{}).AddMedication(vitalkeep.Medication{Id: "1"})
	})
	assert.PanicsWithValue(vitalkeep.ErrStoreNotProvided, func() {
		(&ProfileStore{}).Ready()
	})
}

func TestUpdateProfileMergesOnlyPatchedFields(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	before := currentProfile(t, s)

	email := "x"
	if !assert.NoError(s.UpdateProfile(vitalkeep.ProfilePatch{Email: &email})) {
		return
	}

	expected := before
	expected.Email = "x"
	assert.Equal(expected, currentProfile(t, s))
}

func TestUpdateProfileReplacesSequences(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	notifications := false
	patch := vitalkeep.ProfilePatch{
		Notifications:      &notifications,
		CurrentMedications: []vitalkeep.Medication{},
	}
	if !assert.NoError(s.UpdateProfile(patch)) {
		return
	}
	p := currentProfile(t, s)
	assert.False(p.Notifications)
	assert.Equal([]vitalkeep.Medication{}, p.CurrentMedications)
	assert.Equal(vitalkeep.DefaultProfile().HealthGoals, p.HealthGoals)
}

func TestAddVitalSignKeepsOrder(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	initial := len(currentProfile(t, s).VitalSigns)

	v1 := vitalkeep.VitalSign{Id: "10", Type: vitalkeep.VitalHeartRate, Value: 80, Unit: "bpm", Date: "2024-05-01", Time: "09:00"}
	v2 := vitalkeep.VitalSign{Id: "11", Type: vitalkeep.VitalBloodSugar, Value: 5.4, Unit: "mmol/L", Date: "2024-05-01", Time: "09:10"}
	assert.NoError(s.AddVitalSign(v1))
	assert.NoError(s.AddVitalSign(v2))

	signs := currentProfile(t, s).VitalSigns
	if assert.Equal(initial+2, len(signs)) {
		assert.Equal([]vitalkeep.VitalSign{v1, v2}, signs[initial:])
	}
}

func TestAddAppointmentAndMedicationAppend(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	before := currentProfile(t, s)

	med := vitalkeep.Medication{Id: "3", Name: "Metformin", Dosage: "500mg", Frequency: "Twice daily", StartDate: "2024-05-02"}
	appt := vitalkeep.Appointment{
		Id: "2", DoctorName: "Dr. Lee", Specialty: "Endocrinology", Date: "2024-06-01", Time: "14:00",
		Type: "Consultation", Status: vitalkeep.AppointmentScheduled,
	}
	assert.NoError(s.AddMedication(med))
	assert.NoError(s.AddAppointment(appt))

	after := currentProfile(t, s)
	assert.Equal(append(before.CurrentMedications, med), after.CurrentMedications)
	assert.Equal(append(before.Appointments, appt), after.Appointments)
}

func TestAddAcceptsDuplicateIds(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	dup := vitalkeep.Medication{Id: "1", Name: "Duplicate"}
	assert.NoError(s.AddMedication(dup))
	assert.NoError(s.AddMedication(dup))

	meds := currentProfile(t, s).CurrentMedications
	assert.Equal(4, len(meds))

	assert.NoError(s.RemoveMedication("1"))
	meds = currentProfile(t, s).CurrentMedications
	if assert.Equal(1, len(meds)) {
		assert.Equal("2", meds[0].Id)
	}
}

func TestRemoveMedication(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	meds := currentProfile(t, s).CurrentMedications
	if !assert.Equal([]string{"1", "2"}, []string{meds[0].Id, meds[1].Id}) {
		return
	}

	assert.NoError(s.RemoveMedication("1"))
	assert.Equal([]vitalkeep.Medication{meds[1]}, currentProfile(t, s).CurrentMedications)

	assert.NoError(s.RemoveMedication("nonexistent"))
	assert.Equal([]vitalkeep.Medication{meds[1]}, currentProfile(t, s).CurrentMedications)
}

func TestUpdateHealthGoal(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	before := currentProfile(t, s).HealthGoals

	current := 7.0
	assert.NoError(s.UpdateHealthGoal("1", vitalkeep.HealthGoalPatch{Current: &current}))

	after := currentProfile(t, s).HealthGoals
	expected := append([]vitalkeep.HealthGoal{}, before...)
	expected[0].Current = 7
	assert.Equal(expected, after)
}

func TestUpdateHealthGoalMissingId(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	before := currentProfile(t, s).HealthGoals

	notified := 0
	s.Subscribe(func(change Change) {
		notified++
	})

	current := 5.0
	assert.NoError(s.UpdateHealthGoal("999", vitalkeep.HealthGoalPatch{Current: &current}))
	assert.Equal(before, currentProfile(t, s).HealthGoals)
	assert.Equal(0, notified)
}

func TestCopyOnWrite(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	old := currentProfile(t, s)
	oldMeds := append([]vitalkeep.Medication{}, old.CurrentMedications...)
	oldGoals := append([]vitalkeep.HealthGoal{}, old.HealthGoals...)

	assert.NoError(s.AddMedication(vitalkeep.Medication{Id: "3"}))
	assert.NoError(s.RemoveMedication("1"))
	assert.NoError(s.AddMedication(vitalkeep.Medication{Id: "4"}))
	current := 10.0
	assert.NoError(s.UpdateHealthGoal("1", vitalkeep.HealthGoalPatch{Current: &current}))

	assert.Equal(oldMeds, old.CurrentMedications)
	assert.Equal(oldGoals, old.HealthGoals)
}

func TestPersistenceReaction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	storage := inmem.NewStorage()
	s := loadedStore(t, storage)

	// loading alone does not write
	if !assert.NoError(s.Flush(ctx)) {
		return
	}
	_, err := storage.Get(ctx, ProfileKey)
	assert.ErrorIs(err, vitalkeep.ErrKeyNotFound)

	phone := "+48 600 000 000"
	assert.NoError(s.UpdateProfile(vitalkeep.ProfilePatch{Phone: &phone}))
	assert.NoError(s.AddVitalSign(vitalkeep.VitalSign{Id: "3", Type: vitalkeep.VitalWeight, Value: 74.2, Unit: "kg"}))

	expected, err := vitalkeep.EncodeProfile(currentProfile(t, s))
	if !assert.NoError(err) {
		return
	}
	assert.Eventually(func() bool {
		v, err := storage.Get(ctx, ProfileKey)
		return err == nil && v == expected
	}, time.Second, 5*time.Millisecond)

	// a fresh store sees the persisted profile
	reloaded := loadedStore(t, storage)
	assert.Equal(currentProfile(t, s), currentProfile(t, reloaded))
}

func TestPersistenceWritesLatestValue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var mutex sync.Mutex
	var written []string
	s := loadedStore(t, mock.Storage{
		GetFn: func(ctx context.Context, key string) (string, error) {
			return "", vitalkeep.ErrKeyNotFound
		},
		SetFn: func(ctx context.Context, key string, value string) error {
			mutex.Lock()
			defer mutex.Unlock()
			assert.Equal(ProfileKey, key)
			written = append(written, value)
			return nil
		},
	})

	for i := 0; i < 50; i++ {
		assert.NoError(s.AddMedication(vitalkeep.Medication{Id: "m"}))
	}
	if !assert.NoError(s.Flush(ctx)) {
		return
	}

	expected, _ := vitalkeep.EncodeProfile(currentProfile(t, s))
	mutex.Lock()
	defer mutex.Unlock()
	if assert.NotEmpty(written) {
		assert.Equal(expected, written[len(written)-1])
	}
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	assert := assert.New(t)

	attempts := make(chan string, 10)
	s := loadedStore(t, mock.Storage{
		GetFn: func(ctx context.Context, key string) (string, error) {
			return "", vitalkeep.ErrKeyNotFound
		},
		SetFn: func(ctx context.Context, key string, value string) error {
			attempts <- value
			return errors.New("quota exceeded")
		},
	})

	allergies := "Peanuts"
	assert.NoError(s.UpdateProfile(vitalkeep.ProfilePatch{Allergies: &allergies}))
	assert.NoError(s.Flush(context.Background()))
	assert.Equal("Peanuts", currentProfile(t, s).Allergies)
	// not retried
	assert.Equal(1, len(attempts))
}

func TestSubscribers(t *testing.T) {
	assert := assert.New(t)

	s := NewProfileStore(inmem.NewStorage())
	defer s.Close()

	var calls []string
	var ops []Op
	first := s.Subscribe(func(change Change) {
		calls = append(calls, "first")
		ops = append(ops, change.Op)
	})
	s.Subscribe(func(change Change) {
		calls = append(calls, "second")
	})

	s.Load(context.Background())
	assert.NoError(s.AddMedication(vitalkeep.Medication{Id: "3"}))
	assert.Equal([]string{"first", "second", "first", "second"}, calls)
	assert.Equal([]Op{OpLoad, OpMedicationAdded}, ops)

	s.Unsubscribe(first)
	assert.NoError(s.RemoveMedication("3"))
	assert.Equal([]string{"first", "second", "first", "second", "second"}, calls)
}

func TestChangeCarriesNewProfile(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	var got Change
	s.Subscribe(func(change Change) {
		got = change
	})

	appt := vitalkeep.Appointment{Id: "5", DoctorName: "Dr. Nowak", Date: "2024-07-07", Status: vitalkeep.AppointmentScheduled}
	assert.NoError(s.AddAppointment(appt))
	assert.Equal(OpAppointmentAdded, got.Op)
	assert.Equal(currentProfile(t, s), got.Profile)
	assert.Equal(map[string]interface{}{"id": "5", "doctorName": "Dr. Nowak", "date": "2024-07-07"}, got.Data)
}

func TestPersistenceAfterNonFiniteValue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	storage := inmem.NewStorage()
	s := loadedStore(t, storage)

	assert.NoError(s.AddVitalSign(vitalkeep.VitalSign{Id: "3", Type: vitalkeep.VitalTemperature, Value: math.NaN(), Unit: "C"}))
	firstName := "Ada"
	assert.NoError(s.UpdateProfile(vitalkeep.ProfilePatch{FirstName: &firstName}))
	if !assert.NoError(s.Flush(ctx)) {
		return
	}

	expected, err := vitalkeep.EncodeProfile(currentProfile(t, s))
	if !assert.NoError(err) {
		return
	}
	stored, err := storage.Get(ctx, ProfileKey)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(expected, stored)
	assert.Contains(stored, `"firstName":"Ada"`)
	assert.Contains(stored, `"value":null`)
}

func TestConcurrentMutationsNotifyInOrder(t *testing.T) {
	assert := assert.New(t)

	s := loadedStore(t, inmem.NewStorage())
	initial := len(currentProfile(t, s).VitalSigns)

	var lengths []int
	var last Change
	s.Subscribe(func(change Change) {
		lengths = append(lengths, len(change.Profile.VitalSigns))
		last = change
	})

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(s.AddVitalSign(vitalkeep.VitalSign{Type: vitalkeep.VitalHeartRate, Value: float64(i)}))
			}
		}()
	}
	wg.Wait()

	if !assert.Equal(writers*perWriter, len(lengths)) {
		return
	}
	for i, n := range lengths {
		assert.Equal(initial+i+1, n)
	}
	assert.Equal(currentProfile(t, s), last.Profile)
}
