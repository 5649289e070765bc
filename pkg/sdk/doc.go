// Package askdex embeds the askdex question answering pipeline in a Go program.
//
// The client connects to a Redis-compatible store with the search module, embeds
// questions with an OpenAI-compatible API, searches every configured partition,
// ranks and selects the best passages and writes the answer with a chat model.
//
//	client, _ := askdex.New(ctx,
//	    askdex.WithRedis("localhost:6379", ""),
//	    askdex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	    askdex.WithEmbeddingModel("text-embedding-3-small", 1536),
//	    askdex.WithChatModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	_, _ = client.EnsureIndexes(ctx, false)
//	ans, _ := client.Ask(ctx, "What is photosynthesis?")
//	fmt.Println(ans.Confidence.Level, ans.Text)
//
// Without WithPartition the four stock partitions are searched: faq, glossary,
// concept and textbook.
package askdex
