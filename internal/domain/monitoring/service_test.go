package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/patient"
	"github.com/cardiomon/api/internal/domain/scoring"
)

// -- Mock Entry Repository --

type entryKey struct {
	patientID int64
	date      string
	domain    Domain
}

type mockEntryRepo struct {
	mu      sync.Mutex
	entries map[entryKey]*Entry
	nextID  int64
	err     error
	upserts int
	names   map[int64]string
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[entryKey]*Entry)}
}

func (m *mockEntryRepo) Upsert(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.err != nil {
		return m.err
	}
	key := entryKey{e.PatientID, e.Date.Format(DateLayout), e.Domain}
	now := time.Now()
	if existing, ok := m.entries[key]; ok {
		existing.Payload = e.Payload
		existing.Score = e.Score
		existing.Category = e.Category
		existing.UpdatedAt = now
		e.ID, e.CreatedAt, e.UpdatedAt = existing.ID, existing.CreatedAt, now
		return nil
	}
	m.nextID++
	stored := *e
	stored.ID, stored.CreatedAt, stored.UpdatedAt = m.nextID, now, now
	m.entries[key] = &stored
	e.ID, e.CreatedAt, e.UpdatedAt = stored.ID, now, now
	return nil
}

func (m *mockEntryRepo) ListByPatient(_ context.Context, patientID int64, limit, offset int) ([]*Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var all []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].Domain < all[j].Domain
	})
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockEntryRepo) ListRecent(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var all []*Entry
	for _, e := range m.entries {
		named := *e
		named.PatientName = m.names[e.PatientID]
		all = append(all, &named)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockEntryRepo) get(patientID int64, date string, domain Domain) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[entryKey{patientID, date, domain}]
}

// -- Mock Patient Finder --

type mockPatients struct {
	patients map[int64]*patient.Patient
	err      error
}

func (m *mockPatients) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatients) Count(_ context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.patients), nil
}

// -- Fake Estimator --

type fakeEstimator struct {
	est   nutrition.Estimate
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(_ context.Context, foods []nutrition.FoodItem, drinks []nutrition.DrinkItem) (*nutrition.Estimate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	est := f.est
	return &est, nil
}

var fixedNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

func testPatients() *mockPatients {
	w60 := 60.0
	return &mockPatients{patients: map[int64]*patient.Patient{
		7: {ID: 7, Name: "Pak Budi", BirthDate: time.Date(1956, time.January, 10, 0, 0, 0, 0, time.UTC), WeightKg: &w60},
		8: {ID: 8, Name: "Ibu Rina", BirthDate: time.Date(1986, time.May, 1, 0, 0, 0, 0, time.UTC), WeightKg: &w60},
		9: {ID: 9, Name: "No Weight", BirthDate: time.Date(1950, time.May, 1, 0, 0, 0, 0, time.UTC)},
	}}
}

func newTestService(est NutritionEstimator) (*Service, *mockEntryRepo) {
	repo := newMockEntryRepo()
	svc := NewService(repo, testPatients(), est, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func submission(date string, domain Domain, data string) Submission {
	return Submission{Date: date, Domain: domain, Data: json.RawMessage(data)}
}

func TestIngest_DomainScores(t *testing.T) {
	tests := []struct {
		name      string
		patientID int64
		sub       Submission
		score     float64
		category  scoring.Category
	}{
		{"diet at every target", 7, submission("2026-10-01", DomainDiet, `{"carbohydrate_percent":60,"protein_gram":48,"fat_percent":30}`), 100, scoring.Adequate},
		{"sleep elderly within band", 7, submission("2026-10-01", DomainSleep, `{"sleep_hours":7.5}`), 100, scoring.Adequate},
		{"sleep adult short", 8, submission("2026-10-01", DomainSleep, `{"sleep_hours":5}`), 71.43, scoring.Adequate},
		{"activity above band", 7, submission("2026-10-01", DomainPhysicalActivity, `{"minutes_per_week":400,"intensity":"moderate"}`), 90, scoring.Adequate},
		{"activity default intensity", 7, submission("2026-10-01", DomainPhysicalActivity, `{"minutes_per_week":75}`), 50, scoring.Inadequate},
		{"medication low adherence", 7, submission("2026-10-01", DomainMedication, `{"adherence_rating":2}`), 40, scoring.Inadequate},
		{"numeric strings accepted", 7, submission("2026-10-01", DomainMedication, `{"adherence_rating":"5"}`), 100, scoring.Adequate},
		{"malformed numeric defaults to zero", 7, submission("2026-10-01", DomainSleep, `{"sleep_hours":"lots"}`), 0, scoring.Inadequate},
		{"numeric prefix with unit", 8, submission("2026-10-01", DomainSleep, `{"sleep_hours":"7 jam"}`), 100, scoring.Adequate},
		{"non-string intensity is moderate", 7, submission("2026-10-01", DomainPhysicalActivity, `{"minutes_per_week":200,"intensity":2}`), 100, scoring.Adequate},
		{"indonesian vigorous intensity", 7, submission("2026-10-01", DomainPhysicalActivity, `{"minutes_per_week":200,"intensity":"berat"}`), 95, scoring.Adequate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(nil)
			res, err := svc.Ingest(context.Background(), tt.patientID, tt.sub)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, res.Score, 0.001)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, tt.sub.Domain == DomainDiet, res.NutritionEstimate != nil)

			stored := repo.get(tt.patientID, tt.sub.Date, tt.sub.Domain)
			require.NotNil(t, stored)
			assert.Equal(t, res.Score, stored.Score)
			assert.Equal(t, res.Category, stored.Category)
		})
	}
}

func TestIngest_ScoreRoundedBeforeCategory(t *testing.T) {
	svc, repo := newTestService(nil)

	// 4.89972 / 7 * 100 = 69.996, which rounds to the adequate threshold.
	res, err := svc.Ingest(context.Background(), 8, submission("2026-10-01", DomainSleep, `{"sleep_hours":4.89972}`))
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.Score)
	assert.Equal(t, scoring.Adequate, res.Category)

	stored := repo.get(8, "2026-10-01", DomainSleep)
	require.NotNil(t, stored)
	assert.Equal(t, 70.0, stored.Score)
	assert.Equal(t, scoring.Adequate, stored.Category)
}

func TestIngest_ActivityStoresNormalizedIntensity(t *testing.T) {
	svc, repo := newTestService(nil)
	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-01", DomainPhysicalActivity, `{"minutes_per_week":200,"intensity":"light"}`))
	require.NoError(t, err)

	var stored ActivityPayload
	require.NoError(t, json.Unmarshal(repo.get(7, "2026-10-01", DomainPhysicalActivity).Payload, &stored))
	assert.Equal(t, scoring.Moderate, stored.Intensity)
}

func TestIngest_MissingWeightCountsAsOneKilogram(t *testing.T) {
	svc, _ := newTestService(nil)
	res, err := svc.Ingest(context.Background(), 9, submission("2026-10-01", DomainDiet, `{"carbohydrate_percent":50,"protein_gram":1,"fat_percent":20}`))
	require.NoError(t, err)
	assert.InDelta(t, 100, res.Score, 0.001)
}

func TestIngest_Idempotent(t *testing.T) {
	svc, repo := newTestService(nil)
	sub := submission("2026-10-02", DomainSleep, `{"sleep_hours":9}`)

	first, err := svc.Ingest(context.Background(), 7, sub)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), 7, sub)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	entries, total, err := svc.ListByPatient(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, entries, 1)
	assert.Equal(t, 2, repo.upserts)
}

func TestIngest_ReplacesPreviousEntry(t *testing.T) {
	svc, repo := newTestService(nil)

	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-03", DomainMedication, `{"adherence_rating":5}`))
	require.NoError(t, err)
	res, err := svc.Ingest(context.Background(), 7, submission("2026-10-03", DomainMedication, `{"adherence_rating":1}`))
	require.NoError(t, err)

	assert.InDelta(t, 20, res.Score, 0.001)
	stored := repo.get(7, "2026-10-03", DomainMedication)
	require.NotNil(t, stored)
	assert.InDelta(t, 20, stored.Score, 0.001)
	assert.Equal(t, scoring.Inadequate, stored.Category)
	assert.JSONEq(t, `{"adherence_rating":1}`, string(stored.Payload))

	_, total, err := svc.ListByPatient(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestIngest_DifferentKeysAreSeparate(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for _, sub := range []Submission{
		submission("2026-10-01", DomainSleep, `{"sleep_hours":7}`),
		submission("2026-10-02", DomainSleep, `{"sleep_hours":7}`),
		submission("2026-10-02", DomainMedication, `{"adherence_rating":4}`),
	} {
		_, err := svc.Ingest(ctx, 7, sub)
		require.NoError(t, err)
	}
	_, err := svc.Ingest(ctx, 8, submission("2026-10-02", DomainSleep, `{"sleep_hours":7}`))
	require.NoError(t, err)

	entries, total, err := svc.ListByPatient(ctx, 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)
	assert.Equal(t, "2026-10-02", entries[0].Date.Format(DateLayout))
	assert.Equal(t, "2026-10-01", entries[2].Date.Format(DateLayout))
}

func TestIngest_DietUsesEstimate(t *testing.T) {
	est := &fakeEstimator{est: nutrition.Estimate{CarbohydratePercent: 80, ProteinGram: 48, FatPercent: 30}}
	svc, repo := newTestService(est)

	data := `{"carbohydrate_percent":10,"protein_gram":999,"fat_percent":5,
		"foods":[{"kind":"nasi putih","quantity":"2 piring","cooking_method":"rebus"},{"kind":"  "}],
		"drinks":[{"kind":"teh manis"}]}`
	res, err := svc.Ingest(context.Background(), 7, submission("2026-10-04", DomainDiet, data))
	require.NoError(t, err)

	assert.Equal(t, 1, est.calls)
	require.NotNil(t, res.NutritionEstimate)
	assert.Equal(t, 80.0, res.NutritionEstimate.CarbohydratePercent)
	// carbohydrate sub-score 60, protein and fat 100.
	assert.InDelta(t, 86.8, res.Score, 0.001)

	var stored DietPayload
	require.NoError(t, json.Unmarshal(repo.get(7, "2026-10-04", DomainDiet).Payload, &stored))
	assert.Equal(t, Number(80), stored.CarbohydratePercent)
	assert.Equal(t, Number(48), stored.ProteinGram)
	assert.Len(t, stored.Foods, 2)
}

func TestIngest_DietWithoutItemsSkipsEstimator(t *testing.T) {
	est := &fakeEstimator{}
	svc, _ := newTestService(est)

	res, err := svc.Ingest(context.Background(), 7, submission("2026-10-04", DomainDiet,
		`{"carbohydrate_percent":60,"protein_gram":48,"fat_percent":30,"foods":[{"kind":""}],"drinks":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, est.calls)
	require.NotNil(t, res.NutritionEstimate)
	assert.Equal(t, nutrition.Estimate{CarbohydratePercent: 60, ProteinGram: 48, FatPercent: 30}, *res.NutritionEstimate)
	assert.InDelta(t, 100, res.Score, 0.001)
}

func TestIngest_EstimatorFailureWritesNothing(t *testing.T) {
	for _, kind := range []nutrition.ErrorKind{nutrition.KindTruncated, nutrition.KindUnparseable, nutrition.KindUpstream, nutrition.KindTimeout} {
		t.Run(string(kind), func(t *testing.T) {
			est := &fakeEstimator{err: &nutrition.Error{Kind: kind, Err: errors.New("boom")}}
			svc, repo := newTestService(est)

			_, err := svc.Ingest(context.Background(), 7, submission("2026-10-05", DomainDiet, `{"foods":[{"kind":"rendang"}]}`))
			require.Error(t, err)
			assert.ErrorIs(t, err, &nutrition.Error{Kind: kind})
			assert.Equal(t, 0, repo.upserts)
		})
	}
}

func TestIngest_NoEstimatorConfigured(t *testing.T) {
	svc, repo := newTestService(nil)
	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-05", DomainDiet, `{"drinks":[{"kind":"kopi"}]}`))
	assert.ErrorIs(t, err, nutrition.ErrUpstream)
	assert.Equal(t, 0, repo.upserts)
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name   string
		sub    Submission
		fields []string
	}{
		{"unknown domain", submission("2026-10-01", Domain("mood"), `{}`), []string{"domain"}},
		{"bad date", submission("01/10/2026", DomainSleep, `{"sleep_hours":7}`), []string{"date"}},
		{"everything missing", Submission{}, []string{"date", "domain", "data"}},
		{"null data", submission("2026-10-01", DomainSleep, `null`), []string{"data"}},
		{"data not an object", submission("2026-10-01", DomainSleep, `[1,2]`), []string{"data"}},
		{"data is a string", submission("2026-10-01", DomainMedication, `"4"`), []string{"data"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := &fakeEstimator{}
			svc, repo := newTestService(est)

			_, err := svc.Ingest(context.Background(), 7, tt.sub)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
			assert.Equal(t, 0, repo.upserts)
			assert.Equal(t, 0, est.calls)
		})
	}
}

func TestIngest_PatientNotFound(t *testing.T) {
	est := &fakeEstimator{}
	svc, repo := newTestService(est)

	_, err := svc.Ingest(context.Background(), 404, submission("2026-10-01", DomainDiet, `{"foods":[{"kind":"sate"}]}`))
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.Equal(t, 0, est.calls)
	assert.Equal(t, 0, repo.upserts)
}

func TestIngest_PatientLookupFailure(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewService(repo, &mockPatients{err: errors.New("pool closed")}, nil, zerolog.Nop())

	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-01", DomainSleep, `{"sleep_hours":7}`))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "find patient", perr.Op)
}

func TestIngest_UpsertFailure(t *testing.T) {
	svc, repo := newTestService(nil)
	repo.err = fmt.Errorf("write: %w", errors.New("disk full"))

	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-01", DomainSleep, `{"sleep_hours":7}`))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "upsert", perr.Op)
}

func TestIngest_UpsertForeignKeyMeansNotFound(t *testing.T) {
	svc, repo := newTestService(nil)
	repo.err = ErrPatientNotFound

	_, err := svc.Ingest(context.Background(), 7, submission("2026-10-01", DomainSleep, `{"sleep_hours":7}`))
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestIngest_ConcurrentSameKeyConverges(t *testing.T) {
	svc, repo := newTestService(nil)

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.Ingest(context.Background(), 7, submission("2026-10-06", DomainMedication, fmt.Sprintf(`{"adherence_rating":%d}`, rating)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	_, total, err := svc.ListByPatient(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 5, repo.upserts)
}
