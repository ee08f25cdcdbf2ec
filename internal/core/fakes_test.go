package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/freightops/ordersync/internal/salesforce"
)

// fakeCRM is an in-memory CRM honoring upsert-by-external-id semantics:
// the first upsert for a key creates and returns an id, later upserts
// update and return none.
type fakeCRM struct {
	mu sync.Mutex

	accounts      map[string]string         // account external id -> CRM id
	opportunities map[string]map[string]any // opportunity external id -> last body

	upserts []upsertCall
	queries []string

	failUpsert map[string]error // "<object>/<externalID>" -> forced error
	emptyQuery bool

	created int
	updated int
	nextID  int
}

type upsertCall struct {
	object     string
	externalID string
	body       map[string]any
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		accounts:      make(map[string]string),
		opportunities: make(map[string]map[string]any),
		failUpsert:    make(map[string]error),
	}
}

func (f *fakeCRM) Upsert(_ context.Context, object, externalIDField, externalID string, body map[string]any) (salesforce.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if externalIDField != "External_Id__c" {
		return salesforce.UpsertResult{}, fmt.Errorf("unexpected external id field %q", externalIDField)
	}

	f.upserts = append(f.upserts, upsertCall{object: object, externalID: externalID, body: body})

	if err := f.failUpsert[object+"/"+externalID]; err != nil {
		return salesforce.UpsertResult{}, err
	}

	switch object {
	case "Account":
		if _, exists := f.accounts[externalID]; exists {
			f.updated++
			return salesforce.UpsertResult{Created: false}, nil
		}
		f.nextID++
		id := fmt.Sprintf("001%06d", f.nextID)
		f.accounts[externalID] = id
		f.created++
		return salesforce.UpsertResult{Created: true, ID: id}, nil

	case "Opportunity":
		_, exists := f.opportunities[externalID]
		f.opportunities[externalID] = body
		if exists {
			f.updated++
			return salesforce.UpsertResult{Created: false}, nil
		}
		f.nextID++
		f.created++
		return salesforce.UpsertResult{Created: true, ID: fmt.Sprintf("006%06d", f.nextID)}, nil

	default:
		return salesforce.UpsertResult{}, fmt.Errorf("unexpected object %q", object)
	}
}

func (f *fakeCRM) Query(_ context.Context, soql string) (salesforce.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, soql)

	if f.emptyQuery {
		return salesforce.QueryResult{Done: true}, nil
	}

	// Extract the external id literal out of the WHERE clause.
	start := strings.Index(soql, "= '")
	end := strings.LastIndex(soql, "' LIMIT")
	if start < 0 || end < 0 || end <= start+3 {
		return salesforce.QueryResult{}, errors.New("unexpected soql shape: " + soql)
	}
	externalID := strings.ReplaceAll(soql[start+3:end], `\'`, `'`)
	externalID = strings.ReplaceAll(externalID, `\\`, `\`)

	id, ok := f.accounts[externalID]
	if !ok {
		return salesforce.QueryResult{Done: true}, nil
	}
	return salesforce.QueryResult{
		TotalSize: 1,
		Done:      true,
		Records:   []map[string]any{{"Id": id}},
	}, nil
}

// fakeSource yields a fixed document slice through a cursor-shaped scan.
type fakeSource struct {
	docs     []OrderDocument
	failOpen error

	lastCursor *fakeCursor
}

func (s *fakeSource) Orders(_ context.Context) (OrderCursor, error) {
	if s.failOpen != nil {
		return nil, s.failOpen
	}
	s.lastCursor = &fakeCursor{docs: s.docs}
	return s.lastCursor, nil
}

type fakeCursor struct {
	docs   []OrderDocument
	pos    int
	err    error
	closed bool
}

func (c *fakeCursor) Next(_ context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(val any) error {
	ptr, ok := val.(*OrderDocument)
	if !ok {
		return fmt.Errorf("unexpected decode target %T", val)
	}
	*ptr = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Close(_ context.Context) error {
	c.closed = true
	return nil
}
