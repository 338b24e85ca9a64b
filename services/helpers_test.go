package services

import (
	"fmt"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
)

var testCouchURL = "http://localhost:5989"

// newMockSelector builds a DB selector backed by httpmock responders
func newMockSelector(t *testing.T, dbNames ...string) *repository.CouchDBSelector {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	selector := repository.NewCouchDBSelector()
	for _, dbName := range dbNames {
		ok, _ := httpmock.NewJsonResponder(200, types.OK{IsOK: true})
		httpmock.RegisterResponder("HEAD", fmt.Sprintf("%s/%s", testCouchURL, dbName), ok)

		db, err := repository.NewCouchDBRepository(testCouchURL, dbName, "test", "test", true)
		if err != nil {
			t.Fatal(err)
		}
		selector.AddDB(db)
	}
	return selector
}

// registerFindDocs responds to _find on the given database with the docs
func registerFindDocs(dbName string, docs interface{}) {
	responder, _ := httpmock.NewJsonResponder(200, map[string]interface{}{
		"docs": docs,
	})
	httpmock.RegisterResponder("POST", fmt.Sprintf("%s/%s/_find", testCouchURL, dbName), responder)
}

// registerFindError makes _find on the given database fail at the network level
func registerFindError(dbName string) {
	httpmock.RegisterResponder("POST", fmt.Sprintf("%s/%s/_find", testCouchURL, dbName),
		httpmock.NewErrorResponder(fmt.Errorf("connection refused")))
}
