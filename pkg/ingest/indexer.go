package ingest

import (
	"context"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Indexer regenerates the download index for a channel's storage root.
// It is injected so the pipeline can run against a stub in tests.
type Indexer interface {
	Index(ctx context.Context, channelDir string) error
}

// CondaIndexer shells out to the external `conda index` tool.
type CondaIndexer struct {
	Command string
}

func NewCondaIndexer(command string) *CondaIndexer {
	if command == "" {
		command = "conda"
	}
	return &CondaIndexer{Command: command}
}

func (ci *CondaIndexer) Index(ctx context.Context, channelDir string) error {
	cmd := exec.CommandContext(ctx, ci.Command, "index", channelDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logrus.Errorf("index regeneration failed for %s: %v: %s", channelDir, err, output)
		return err
	}

	logrus.Debugf("index regenerated for %s", channelDir)
	return nil
}
