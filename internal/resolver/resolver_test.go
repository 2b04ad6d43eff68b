package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/scope"
)

func subj(id, name string) account.SchoolSubject {
	return account.SchoolSubject{SubjectID: id, SubjectName: name}
}

func school(id, name string, subjects ...account.SchoolSubject) account.School {
	return account.School{SchoolID: id, SchoolName: name, Subjects: subjects}
}

func user(role account.Role, schools ...account.School) account.User {
	return account.User{ID: "u1", Role: role, Schools: schools}
}

var acme = school("S1", "Acme", subj("M1", "Math"))

func newHandle(t *testing.T) *scope.Handle {
	t.Helper()
	st := scope.NewMemoryStore(0)
	t.Cleanup(st.Close)
	h, err := scope.NewHandle(context.Background(), st, "sid")
	require.NoError(t, err)
	return h
}

func TestResolve_AdminAlwaysSkips(t *testing.T) {
	cases := [][]account.School{
		nil,
		{acme},
		{acme, school("S2", "Beta", subj("P1", "Physics"), subj("C1", "Chem"))},
		{school("S3", "Empty")},
	}
	for _, schools := range cases {
		d := Resolve(user(account.RoleAdministrator, schools...))
		assert.Equal(t, Skip, d.Kind)
		assert.Nil(t, d.Selection)
		assert.Nil(t, d.Schools)
	}
}

func TestResolve_NoSchoolsSkips(t *testing.T) {
	for _, r := range []account.Role{account.RoleStudent, account.RoleTeachingStaff, account.RoleUnknown} {
		assert.Equal(t, Skip, Resolve(user(r)).Kind, r.String())
	}
}

func TestApply_AutoSelectsSinglePair(t *testing.T) {
	h := newHandle(t)

	d, err := Apply(context.Background(), h, user(account.RoleStudent, acme))
	require.NoError(t, err)
	require.Equal(t, AutoSelected, d.Kind)

	want := scope.Selection{SchoolID: "S1", SchoolName: "Acme", SubjectID: "M1", SubjectName: "Math"}
	assert.Equal(t, want, *d.Selection)

	stored, ok := h.GetContext()
	require.True(t, ok, "auto selection is persisted")
	assert.Equal(t, want, stored)
}

func TestResolve_AmbiguityNeedsSelection(t *testing.T) {
	twoSchools := user(account.RoleStudent, acme, school("S2", "Beta", subj("P1", "Physics")))
	twoSubjects := user(account.RoleTeachingStaff, school("S1", "Acme", subj("M1", "Math"), subj("P1", "Physics")))
	zeroSubjects := user(account.RoleStudent, school("S1", "Acme"))

	for name, u := range map[string]account.User{
		"two schools":   twoSchools,
		"two subjects":  twoSubjects,
		"zero subjects": zeroSubjects,
	} {
		d := Resolve(u)
		assert.Equal(t, NeedsSelection, d.Kind, name)
		assert.Equal(t, u.Schools, d.Schools, name)
		assert.Nil(t, d.Selection, name)
	}
}

func TestApply_NeedsSelectionDoesNotWrite(t *testing.T) {
	h := newHandle(t)
	u := user(account.RoleStudent, acme, school("S2", "Beta", subj("P1", "Physics")))

	d, err := Apply(context.Background(), h, u)
	require.NoError(t, err)
	assert.Equal(t, NeedsSelection, d.Kind)
	_, ok := h.GetContext()
	assert.False(t, ok)
}

func TestApply_NilHandle(t *testing.T) {
	_, err := Apply(context.Background(), nil, user(account.RoleStudent, acme))
	assert.ErrorIs(t, err, scope.ErrNoSession)
}

func TestResolve_NullSubjectsFromJSON(t *testing.T) {
	var u account.User
	require.NoError(t, json.Unmarshal([]byte(
		`{"role":{"role_type":3},"schools":[{"school_id":"S1","school_name":"Acme"}]}`), &u))
	assert.Equal(t, NeedsSelection, Resolve(u).Kind)
}

func TestIsStoredSelectionValid_RoundTrip(t *testing.T) {
	stored := scope.Selection{SchoolID: "S2", SubjectID: "P1"}
	u := user(account.RoleStudent,
		acme,
		school("S2", "Beta", subj("P1", "Physics"), subj("C1", "Chem")))

	assert.True(t, IsStoredSelectionValid(stored, u))

	// Drop the pair; the stored record is untouched.
	u.Schools[1].Subjects = u.Schools[1].Subjects[1:]
	assert.False(t, IsStoredSelectionValid(stored, u))
	assert.Equal(t, "P1", stored.SubjectID)

	u.Schools = u.Schools[:1]
	assert.False(t, IsStoredSelectionValid(stored, u))
}

func TestIsStoredSelectionValid_SubjectMustBelongToSchool(t *testing.T) {
	u := user(account.RoleStudent, acme, school("S2", "Beta", subj("P1", "Physics")))
	assert.False(t, IsStoredSelectionValid(scope.Selection{SchoolID: "S1", SubjectID: "P1"}, u))
}

func TestIsStoredSelectionValid_AdminAndNoSchools(t *testing.T) {
	stored := scope.Selection{SchoolID: "S1", SubjectID: "M1"}
	assert.False(t, IsStoredSelectionValid(stored, user(account.RoleAdministrator, acme)))
	assert.False(t, IsStoredSelectionValid(stored, user(account.RoleStudent)))
}

func TestResume_ReusesValidSelection(t *testing.T) {
	ctx := context.Background()
	h := newHandle(t)
	u := user(account.RoleStudent, acme, school("S2", "Beta", subj("P1", "Physics")))

	prev := scope.Selection{SchoolID: "S2", SchoolName: "Beta", SubjectID: "P1", SubjectName: "Physics"}
	require.NoError(t, h.SetContext(ctx, prev))

	d, err := Resume(ctx, h, u)
	require.NoError(t, err)
	assert.Equal(t, AutoSelected, d.Kind)
	assert.Equal(t, prev, *d.Selection)
}

func TestResume_ClearsStaleAndReResolves(t *testing.T) {
	ctx := context.Background()
	h := newHandle(t)
	require.NoError(t, h.SetContext(ctx, scope.Selection{SchoolID: "gone", SubjectID: "x"}))

	d, err := Resume(ctx, h, user(account.RoleStudent, acme, school("S2", "Beta", subj("P1", "Physics"))))
	require.NoError(t, err)
	assert.Equal(t, NeedsSelection, d.Kind)
	_, ok := h.GetContext()
	assert.False(t, ok)
}

func TestResume_StaleThenAutoSelect(t *testing.T) {
	ctx := context.Background()
	h := newHandle(t)
	require.NoError(t, h.SetContext(ctx, scope.Selection{SchoolID: "gone", SubjectID: "x"}))

	d, err := Resume(ctx, h, user(account.RoleStudent, acme))
	require.NoError(t, err)
	assert.Equal(t, AutoSelected, d.Kind)
	sel, ok := h.GetContext()
	require.True(t, ok)
	assert.Equal(t, "M1", sel.SubjectID)
}

func TestDecisionJSON(t *testing.T) {
	b, err := json.Marshal(Decision{Kind: NeedsSelection, Schools: []account.School{acme}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"decision":"needs_selection"`)
	assert.Contains(t, string(b), `"school_id":"S1"`)
}
