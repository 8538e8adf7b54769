// Package eventrank ranks calendar events for a student profile.
//
// It embeds the profile and event text, then combines semantic similarity,
// label overlap and recency into one score per event. Vectors are cached in
// a bounded LRU, so ranking the same events again costs no embedding calls.
//
//	client, _ := eventrank.New(
//	    eventrank.WithEmbedder(myEmbedder),
//	    eventrank.WithMajors(map[string]string{"Computer Science": "algorithms software"}),
//	)
//	events, stats := client.Sanitize(rawRecords)
//	ranked, _ := client.Rank(ctx, eventrank.Profile{
//	    Major:     "Computer Science",
//	    Interests: []string{"ai", "startups"},
//	}, events)
//
// Without WithEmbedder the client uses a deterministic feature-hashing
// embedder, which needs no credentials but only captures word overlap.
package eventrank
