package xmatch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/sky"
	"github.com/roach88/xmatch/internal/testutil"
)

func stubWith(p testutil.Point, cands ...catalog.Candidate) *testutil.StubCatalog {
	return &testutil.StubCatalog{
		Cones: map[testutil.Point][]catalog.Candidate{p: cands},
	}
}

func TestMatch_NoCandidatesIsNoMatch(t *testing.T) {
	stub := &testutil.StubCatalog{}
	m := New(stub)

	out := m.Match(context.Background(), catalog.SourceEntry{ID: 2, RA: 200, Dec: -45, Magnitude: 9.9})
	assert.False(t, out.Matched())
	assert.Equal(t, ReasonNoCandidates, out.Reason)
	assert.NoError(t, out.Err)
	assert.Len(t, stub.ConeCalls(), 1)
}

func TestMatch_FirstCandidateWins(t *testing.T) {
	p := testutil.Point{RA: 10, Dec: 20}
	far := catalog.Candidate{ID: 100, RA: 10.001, Dec: 20.001}
	near := catalog.Candidate{ID: 200, RA: 10, Dec: 20.0001}
	m := New(stubWith(p, far, near))

	out := m.Match(context.Background(), catalog.SourceEntry{ID: 1, RA: 10, Dec: 20, Magnitude: 8.5})
	require.True(t, out.Matched())
	assert.Equal(t, int64(100), out.Match.TargetID)
	assert.Equal(t, int64(1), out.Match.SourceID)
	assert.Equal(t, 8.5, out.Match.Magnitude)
	assert.Equal(t, 2, out.Match.Candidates)
	assert.InDelta(t, sky.Separation(10, 20, far.RA, far.Dec), out.Match.Separation, 1e-12)
}

func TestMatch_NearestSelection(t *testing.T) {
	p := testutil.Point{RA: 10, Dec: 20}
	far := catalog.Candidate{ID: 100, RA: 10.001, Dec: 20.001}
	near := catalog.Candidate{ID: 200, RA: 10, Dec: 20.0001}
	m := New(stubWith(p, far, near), WithSelection(SelectNearest))

	out := m.Match(context.Background(), catalog.SourceEntry{ID: 1, RA: 10, Dec: 20})
	require.True(t, out.Matched())
	assert.Equal(t, int64(200), out.Match.TargetID)
	assert.InDelta(t, 0.36, out.Match.Separation, 1e-6)
}

func TestMatch_NearestTieBreaksOnLowerID(t *testing.T) {
	p := testutil.Point{RA: 10, Dec: 20}
	a := catalog.Candidate{ID: 9, RA: 10, Dec: 20.0001}
	b := catalog.Candidate{ID: 3, RA: 10, Dec: 20.0001}
	m := New(stubWith(p, a, b), WithSelection(SelectNearest))

	out := m.Match(context.Background(), catalog.SourceEntry{ID: 1, RA: 10, Dec: 20})
	require.True(t, out.Matched())
	assert.Equal(t, int64(3), out.Match.TargetID)
}

func TestMatch_ServiceErrorBecomesOutcome(t *testing.T) {
	p := testutil.Point{RA: 10, Dec: 20}
	failure := &catalog.ServiceError{Service: "gaia", StatusCode: 503, Attempts: 3}
	stub := &testutil.StubCatalog{ConeErrs: map[testutil.Point]error{p: failure}}

	out := New(stub).Match(context.Background(), catalog.SourceEntry{ID: 1, RA: 10, Dec: 20})
	assert.False(t, out.Matched())
	assert.Equal(t, ReasonServiceError, out.Reason)
	assert.True(t, catalog.IsServiceUnavailable(out.Err))
}

func TestMatch_CanceledIsDistinguished(t *testing.T) {
	p := testutil.Point{RA: 10, Dec: 20}
	stub := &testutil.StubCatalog{ConeErrs: map[testutil.Point]error{
		p: &catalog.ServiceError{Service: "gaia", Err: context.Canceled},
	}}

	out := New(stub).Match(context.Background(), catalog.SourceEntry{ID: 1, RA: 10, Dec: 20})
	assert.Equal(t, ReasonCanceled, out.Reason)
}

func TestMatch_InvalidEntrySkipsRemoteCall(t *testing.T) {
	stub := &testutil.StubCatalog{}
	m := New(stub)

	for _, e := range []catalog.SourceEntry{
		{ID: 1, RA: math.NaN(), Dec: 0},
		{ID: 2, RA: 360, Dec: 0},
		{ID: 3, RA: 10, Dec: -91},
	} {
		out := m.Match(context.Background(), e)
		assert.Equal(t, ReasonInvalidEntry, out.Reason)
		assert.True(t, errors.Is(out.Err, catalog.ErrMalformedEntry))
	}
	assert.Empty(t, stub.ConeCalls())
}

func TestOptions(t *testing.T) {
	m := New(&testutil.StubCatalog{}, WithRadius(2.5), WithSelection(SelectNearest), WithLogger(nil))
	assert.Equal(t, 2.5, m.Radius())
	assert.Equal(t, SelectNearest, m.Selection())

	m = New(&testutil.StubCatalog{}, WithRadius(-1), WithSelection(""))
	assert.Equal(t, DefaultRadiusArcsec, m.Radius())
	assert.Equal(t, SelectFirst, m.Selection())
}

func TestParseSelection(t *testing.T) {
	s, err := ParseSelection("nearest")
	require.NoError(t, err)
	assert.Equal(t, SelectNearest, s)

	s, err = ParseSelection("")
	require.NoError(t, err)
	assert.Equal(t, SelectFirst, s)

	_, err = ParseSelection("closest")
	assert.Error(t, err)
}
