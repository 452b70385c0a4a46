package model

import (
	"testing"

	"simcore/testutil"
)

func TestModelStaysFreeOfInternalImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/model is a public API and must not depend on internal packages")
	testutil.AssertNoDirectImports(t, ".", testutil.PersistenceImportForbidden,
		"the document model must not depend on any storage backend")
}
