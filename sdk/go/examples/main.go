package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"time"

	"TaskHub/internal/api"
	"TaskHub/internal/importer"
	"TaskHub/internal/task"
	"TaskHub/sdk/go/taskhub"
)

func main() {
	svc := task.NewService(task.NewMemoryStore(), nil)
	srv := httptest.NewServer(api.NewServer(svc, importer.New(svc, importer.Config{}), api.Options{}).Handler())
	defer srv.Close()

	client, err := taskhub.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := client.CreateTask(ctx, taskhub.TaskCreate{Title: "try the sdk", Description: "demo"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("created task %s (priority %s)\n", created.ID, created.Priority)

	if _, err := client.SetTags(ctx, created.ID, []string{"Demo", "SDK"}); err != nil {
		panic(err)
	}

	report, err := client.ImportFile(ctx, "tasks.csv", strings.NewReader("title,description\nfirst,1\n,broken\n"))
	if err != nil {
		panic(err)
	}
	fmt.Printf("imported %d, failed %d\n", report.Imported, report.Failed)
	for _, rowErr := range report.Errors {
		fmt.Printf("  row %d: %s\n", *rowErr.Row, rowErr.Error)
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("total=%d completed=%d tags=%v\n", stats.Total, stats.Completed, stats.TagDistribution)
}
