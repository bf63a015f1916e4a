package config

import (
	"fmt"
	"os"
)

type DynamoConfig struct {
	TableName string
	// UserIndexName is the GSI keyed by user_id used to list sequences.
	UserIndexName string
}

func GetDynamoConfig() (*DynamoConfig, error) {
	tableName := os.Getenv("SEQUENCES_TABLE_NAME")
	if tableName == "" {
		return nil, fmt.Errorf("SEQUENCES_TABLE_NAME must be set")
	}

	indexName := os.Getenv("SEQUENCES_USER_INDEX_NAME")
	if indexName == "" {
		indexName = "user_id-index"
	}

	return &DynamoConfig{
		TableName:     tableName,
		UserIndexName: indexName,
	}, nil
}
