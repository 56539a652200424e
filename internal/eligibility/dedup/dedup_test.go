package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/store/checkhashes"
	dErrors "eligo/pkg/domain-errors"
	"eligo/pkg/requestcontext"
)

type CacheSuite struct {
	suite.Suite
	store  *checkhashes.InMemoryStore
	cache  *Cache
	now    time.Time
	req    models.CheckRequest
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.store = checkhashes.NewInMemoryStore()
	cache, err := New(s.store, 7*24*time.Hour)
	s.Require().NoError(err)
	s.cache = cache
	s.now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s.req = models.NewCheckRequest(models.CheckTypeFreeSchoolMeals, models.FreeSchoolMealsPayload{
		Identity: models.Identity{LastName: "Smith", DateOfBirth: "1990-01-01", NationalInsuranceNumber: "AB123456C"},
	})
}

func (s *CacheSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *CacheSuite) TestMissThenHit() {
	hit, err := s.cache.Exists(s.at(s.now), s.req)
	s.Require().NoError(err)
	s.Nil(hit)

	created, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeEligible, models.SourceBenefitsDepartment)
	s.Require().NoError(err)

	hit, err = s.cache.Exists(s.at(s.now.Add(time.Hour)), s.req)
	s.Require().NoError(err)
	s.Require().NotNil(hit)
	s.Equal(created.ID, hit.ID)
	s.Equal(models.StatusEligible, hit.Outcome)
	s.Equal(models.SourceBenefitsDepartment, hit.Source)
}

func (s *CacheSuite) TestExistsIsIdempotent() {
	_, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeNotEligible, models.SourceTaxAuthority)
	s.Require().NoError(err)

	first, err := s.cache.Exists(s.at(s.now), s.req)
	s.Require().NoError(err)
	second, err := s.cache.Exists(s.at(s.now), s.req)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(1, s.store.Count(), "reads never write")
}

func (s *CacheSuite) TestEntryExpiresAfterWindow() {
	_, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeEligible, models.SourceBenefitsDepartment)
	s.Require().NoError(err)

	atEdge, err := s.cache.Exists(s.at(s.now.Add(7*24*time.Hour)), s.req)
	s.Require().NoError(err)
	s.NotNil(atEdge, "entry exactly at the window edge is still fresh")

	expired, err := s.cache.Exists(s.at(s.now.Add(7*24*time.Hour+time.Second)), s.req)
	s.Require().NoError(err)
	s.Nil(expired)
	s.Equal(1, s.store.Count(), "expired entries are not deleted")
}

func (s *CacheSuite) TestNewestFreshEntryWins() {
	_, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeNotEligible, models.SourceBenefitsDepartment)
	s.Require().NoError(err)
	newer, err := s.cache.Create(s.at(s.now.Add(time.Hour)), s.req, models.OutcomeEligible, models.SourceBenefitsDepartment)
	s.Require().NoError(err)

	hit, err := s.cache.Exists(s.at(s.now.Add(2*time.Hour)), s.req)
	s.Require().NoError(err)
	s.Equal(newer.ID, hit.ID)
}

func (s *CacheSuite) TestCreateRejectsErrorOutcome() {
	_, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeError, models.SourceBenefitsDepartment)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Equal(0, s.store.Count())
}

func (s *CacheSuite) TestCreateReturnsStoredEntry() {
	entry, err := s.cache.Create(s.at(s.now), s.req, models.OutcomeParentNotFound, models.SourceImmigration)
	s.Require().NoError(err)

	s.Equal(models.Fingerprint(s.req), entry.Hash)
	s.Equal(models.StatusParentNotFound, entry.Outcome)
	s.Equal(models.SourceImmigration, entry.Source)
	s.Equal(s.now, entry.CreatedAt)

	stored, err := s.store.FindFresh(context.Background(), entry.Hash, s.now)
	s.Require().NoError(err)
	s.Equal(entry.ID, stored.ID)
}

type failingStore struct{}

func (failingStore) Save(context.Context, *models.CheckHash) error { return errors.New("disk full") }
func (failingStore) FindFresh(context.Context, string, time.Time) (*models.CheckHash, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailuresAreInternal(t *testing.T) {
	cache, err := New(failingStore{}, time.Hour)
	require.NoError(t, err)
	req := models.NewCheckRequest(models.CheckTypeFreeSchoolMeals, models.FreeSchoolMealsPayload{})

	_, err = cache.Exists(context.Background(), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	_, err = cache.Create(context.Background(), req, models.OutcomeEligible, models.SourceTaxAuthority)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, time.Hour)
	assert.Error(t, err)
	_, err = New(checkhashes.NewInMemoryStore(), 0)
	assert.Error(t, err)
}
