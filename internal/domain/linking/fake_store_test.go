package linking_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/similarity"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory linking.Store.
type fakeStore struct {
	mu           sync.Mutex
	results      map[string]*model.Result
	order        []string
	participants map[string]*model.Participant
	nextID       int
	failLink     map[string]bool
	linkCalls    int
	createCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:      make(map[string]*model.Result),
		participants: make(map[string]*model.Participant),
		failLink:     make(map[string]bool),
	}
}

func (f *fakeStore) addParticipant(id, name string, aliases ...string) {
	p := &model.Participant{ID: id, CanonicalName: similarity.Normalize(name), DisplayName: name}
	for _, a := range aliases {
		p.Aliases = append(p.Aliases, model.Alias{ParticipantID: id, Text: a, Key: similarity.Normalize(a), UsageCount: 1})
	}
	f.participants[id] = p
}

func (f *fakeStore) addResult(id, name string) {
	f.results[id] = &model.Result{ID: id, RallyID: "r1", ParticipantName: name, Status: model.StatusPending}
	f.order = append(f.order, id)
}

func (f *fakeStore) result(id string) model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.results[id]
}

func (f *fakeStore) participant(id string) model.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.participants[id]
}

func (f *fakeStore) participantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.participants)
}

func (f *fakeStore) UnlinkedResults(_ context.Context) ([]model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Result
	for _, id := range f.order {
		if r := f.results[id]; !r.Linked() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) Participants(_ context.Context) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.participants))
	for id := range f.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.Participant, 0, len(ids))
	for _, id := range ids {
		p := *f.participants[id]
		p.Aliases = append([]model.Alias(nil), p.Aliases...)
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) LinkResult(_ context.Context, resultID, participantID, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls++
	if f.failLink[resultID] {
		return errInjected
	}
	r, ok := f.results[resultID]
	if !ok {
		return fmt.Errorf("result %s: not found", resultID)
	}
	if r.Linked() {
		return fmt.Errorf("result %s: already linked", resultID)
	}
	p, ok := f.participants[participantID]
	if !ok {
		return fmt.Errorf("participant %s: not found", participantID)
	}
	r.ParticipantID = &participantID
	f.upsertAlias(p, alias)
	return nil
}

func (f *fakeStore) CreateParticipantAndLink(_ context.Context, resultID string, p model.Participant) (model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	r, ok := f.results[resultID]
	if !ok {
		return model.Participant{}, fmt.Errorf("result %s: not found", resultID)
	}
	f.nextID++
	p.ID = fmt.Sprintf("new-%d", f.nextID)
	stored := p
	f.participants[p.ID] = &stored
	f.upsertAlias(&stored, r.ParticipantName)
	id := p.ID
	r.ParticipantID = &id
	return stored, nil
}

func (f *fakeStore) upsertAlias(p *model.Participant, text string) {
	key := similarity.Normalize(text)
	for i := range p.Aliases {
		if p.Aliases[i].Key == key {
			p.Aliases[i].UsageCount++
			return
		}
	}
	p.Aliases = append(p.Aliases, model.Alias{ParticipantID: p.ID, Text: text, Key: key, UsageCount: 1})
}
