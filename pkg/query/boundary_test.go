package query

import (
	"testing"

	"simcore/testutil"
)

func TestQueryStaysFreeOfInternalImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/query is a public API and must not depend on internal packages")
}
