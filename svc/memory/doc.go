// Package memory holds the quota-gated use cases of memkeep: saving a memory
// and generating a summary over saved memories.
//
// Both use cases ask the subscription engine first and only then perform the
// primary action. Usage counters are incremented after the action succeeds;
// a failed increment is logged and never fails the request.
//
//	svc := memory.NewService(subscriptions, repo, summarizer)
//
//	mem, err := svc.SaveMemory(ctx, memory.SaveInput{UserID: uid, Content: text})
//	if errors.Is(err, memory.ErrUpgradeRequired) {
//		// respond with 402 Payment Required
//	}
package memory
