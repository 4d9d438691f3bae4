package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

func validInput(creator uuid.UUID) ports.CreatePollInput {
	return ports.CreatePollInput{
		CreatorID: creator,
		Title:     "  Unde facem reuniunea?  ",
		Questions: []ports.QuestionInput{
			{Text: "Oras", Label: "locatie", Options: []string{"Bucuresti", " Cluj "}},
			{Text: "Luna", Options: []string{"Iunie", "Iulie", "August"}},
		},
	}
}

func TestCreatePoll(t *testing.T) {
	env := newTestEnv(t)

	poll, err := env.polls.Create(context.Background(), validInput(env.admin.ID))
	require.NoError(t, err)

	assert.Equal(t, "Unde facem reuniunea?", poll.Title)
	assert.Equal(t, domain.ScopeAll, poll.Scope)
	assert.Equal(t, domain.DefaultRevealThreshold, poll.RevealThreshold)
	assert.True(t, poll.Active)
	assert.False(t, poll.Unlocked())
	assert.Nil(t, poll.TargetSchool)

	require.Len(t, poll.Questions, 2)
	assert.Equal(t, 0, poll.Questions[0].OrderIndex)
	assert.Equal(t, "locatie", poll.Questions[0].Label)
	assert.Equal(t, "Cluj", poll.Questions[0].Options[1].Text)
	assert.Equal(t, 1, poll.Questions[0].Options[1].OrderIndex)
	assert.Len(t, poll.Questions[1].Options, 3)
	for _, q := range poll.Questions {
		assert.Equal(t, poll.ID, q.PollID)
		for _, o := range q.Options {
			assert.Equal(t, q.ID, o.QuestionID)
		}
	}

	assert.NotNil(t, env.store.poll(poll.ID))
}

func TestCreatePoll_Threshold(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 1, want: domain.MinRevealThreshold},
		{in: 2, want: 2},
		{in: 25, want: 25},
		{in: 500, want: domain.MaxRevealThreshold},
	}

	env := newTestEnv(t)
	for _, tc := range tests {
		input := validInput(env.admin.ID)
		input.RevealThreshold = &tc.in

		poll, err := env.polls.Create(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, poll.RevealThreshold)
	}
}

func TestCreatePoll_ScopeTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := validInput(env.admin.ID)
	input.Scope = domain.ScopeClass
	poll, err := env.polls.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "CNMB", *poll.TargetSchool)
	assert.Equal(t, 2015, *poll.TargetYear)
	assert.Equal(t, "12A", *poll.TargetClass)

	school := "Colegiul National Lazar"
	input = validInput(env.admin.ID)
	input.Scope = domain.ScopeSchool
	input.TargetSchool = &school
	poll, err = env.polls.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, school, *poll.TargetSchool)
	assert.Nil(t, poll.TargetYear)
	assert.Nil(t, poll.TargetClass)

	env.admin.GraduationYear = nil
	input = validInput(env.admin.ID)
	input.Scope = domain.ScopeYear
	_, err = env.polls.Create(ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreatePoll_Rejections(t *testing.T) {
	env := newTestEnv(t)
	member := env.addProfile(false, "CNMB", 2015, "12A")
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name   string
		modify func(in *ports.CreatePollInput)
		err    error
	}{
		{"member cannot create", func(in *ports.CreatePollInput) { in.CreatorID = member.ID }, domain.ErrForbidden},
		{"unknown creator", func(in *ports.CreatePollInput) { in.CreatorID = uuid.New() }, domain.ErrForbidden},
		{"blank title", func(in *ports.CreatePollInput) { in.Title = "   " }, domain.ErrValidation},
		{"expiry in the past", func(in *ports.CreatePollInput) { in.ExpiresAt = &past }, domain.ErrValidation},
		{"unknown scope", func(in *ports.CreatePollInput) { in.Scope = "galaxy" }, domain.ErrValidation},
		{"no questions", func(in *ports.CreatePollInput) { in.Questions = nil }, domain.ErrValidation},
		{"too many questions", func(in *ports.CreatePollInput) {
			for len(in.Questions) <= maxQuestions {
				in.Questions = append(in.Questions, ports.QuestionInput{Text: "Q", Options: []string{"a", "b"}})
			}
		}, domain.ErrValidation},
		{"single option", func(in *ports.CreatePollInput) { in.Questions[0].Options = []string{"Da"} }, domain.ErrValidation},
		{"too many options", func(in *ports.CreatePollInput) {
			in.Questions[0].Options = strings.Split("a,b,c,d,e,f,g", ",")
		}, domain.ErrValidation},
		{"empty option", func(in *ports.CreatePollInput) { in.Questions[0].Options = []string{"Da", " "} }, domain.ErrValidation},
		{"empty question", func(in *ports.CreatePollInput) { in.Questions[1].Text = "" }, domain.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(env.admin.ID)
			tc.modify(&input)

			_, err := env.polls.Create(context.Background(), input)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestGetPoll_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := validInput(env.admin.ID)
	input.Scope = domain.ScopeClass
	classPoll, err := env.polls.Create(ctx, input)
	require.NoError(t, err)

	classmate := env.addProfile(false, "CNMB", 2015, "12A")
	other := env.addProfile(false, "CNMB", 2015, "12B")

	view, err := env.polls.GetPoll(ctx, classPoll.ID.String(), classmate.ID)
	require.NoError(t, err)
	assert.False(t, view.HasAnswered)
	assert.False(t, view.HasPeeked)
	assert.Len(t, view.Questions, 2)

	_, err = env.polls.GetPoll(ctx, classPoll.ID.String(), other.ID)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = env.polls.GetPoll(ctx, classPoll.ID.String(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = env.polls.GetPoll(ctx, "nope", classmate.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidPollID)
}

func TestListPolls(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		env.createPoll(t, 10, domain.ScopeAll, 2)
	}
	input := validInput(env.admin.ID)
	input.Scope = domain.ScopeClass
	_, err := env.polls.Create(ctx, input)
	require.NoError(t, err)

	outsider := env.addProfile(false, "Lazar", 2010, "12C")

	first, err := env.polls.ListPolls(ctx, ports.ListPollsInput{ViewerID: outsider.ID, Page: 1})
	require.NoError(t, err)
	assert.Len(t, first, pageSize)

	second, err := env.polls.ListPolls(ctx, ports.ListPollsInput{ViewerID: outsider.ID, Page: 2})
	require.NoError(t, err)
	assert.Len(t, second, 2)
	for _, p := range append(first, second...) {
		assert.Equal(t, domain.ScopeAll, p.Scope)
	}

	admin, err := env.polls.ListPolls(ctx, ports.ListPollsInput{ViewerID: env.admin.ID, Page: 2})
	require.NoError(t, err)
	assert.Len(t, admin, 3)
}

func TestUpdatePoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	poll := env.createPoll(t, 10, domain.ScopeAll, 2)
	member := env.addProfile(false, "CNMB", 2015, "12A")

	title := "Titlu nou"
	_, err := env.polls.UpdatePoll(ctx, ports.UpdatePollInput{
		PollID: poll.ID, EditorID: member.ID, PollUpdate: ports.PollUpdate{Title: &title},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	blank := " "
	_, err = env.polls.UpdatePoll(ctx, ports.UpdatePollInput{
		PollID: poll.ID, EditorID: env.admin.ID, PollUpdate: ports.PollUpdate{Title: &blank},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	future := time.Now().Add(time.Hour)
	_, err = env.polls.UpdatePoll(ctx, ports.UpdatePollInput{
		PollID: poll.ID, EditorID: env.admin.ID, PollUpdate: ports.PollUpdate{ExpiresAt: &future, ClearExpiry: true},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	huge := 1000
	updated, err := env.polls.UpdatePoll(ctx, ports.UpdatePollInput{
		PollID: poll.ID, EditorID: env.admin.ID, PollUpdate: ports.PollUpdate{Title: &title, RevealThreshold: &huge},
	})
	require.NoError(t, err)
	assert.Equal(t, "Titlu nou", updated.Title)
	assert.Equal(t, domain.MaxRevealThreshold, updated.RevealThreshold)
	assert.False(t, updated.Unlocked())

	_, err = env.polls.UpdatePoll(ctx, ports.UpdatePollInput{
		PollID: uuid.New(), EditorID: env.admin.ID, PollUpdate: ports.PollUpdate{Title: &title},
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}
