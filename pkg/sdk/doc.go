// Package ragquery embeds the grounded question-answering pipeline in a Go program.
//
// The client searches a Redis chunk index, reranks and cites passages, and keeps a
// per-user history of answered questions. The embedding model, the language model
// and the optional reranker are supplied by the caller.
//
//	client, _ := ragquery.New(ctx,
//	    ragquery.WithRedis("localhost:6379", ""),
//	    ragquery.WithEmbedder(myEmbedder),
//	    ragquery.WithGenerator(myLLM, "lmstudio", "qwen2.5-7b-instruct"),
//	)
//	defer client.Close()
//
//	ans, _ := client.Query(ctx, ragquery.QueryRequest{Query: "How do generators work?"})
//	if ans.Fallback {
//	    // low confidence: ans.Sources still lists the closest chunks
//	}
//	page, _ := client.History().List(ctx, "1", 10, 0)
package ragquery
