package subscription

// Exported for tests.
var (
	FilterDocument = filterDocument
	PatchDocument  = patchDocument
)
