package service

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"PillSync/pkg/logger"
	"PillSync/pkg/snowflake"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()

	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}
