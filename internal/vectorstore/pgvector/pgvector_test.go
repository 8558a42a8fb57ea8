package pgvector

import (
	"testing"

	"github.com/mentals-ai/mentals/internal/vectorstore"
	"github.com/stretchr/testify/assert"
)

func TestVectorLiteralFormatsAsPgvectorArray(t *testing.T) {
	assert.Equal(t, "[1,2.5,-3]", vectorLiteral([]float32{1, 2.5, -3}))
}

func TestDistanceOperatorPerMetric(t *testing.T) {
	assert.Equal(t, "<=>", distanceOperator(vectorstore.MetricCosine))
	assert.Equal(t, "<->", distanceOperator(vectorstore.MetricEuclidean))
	assert.Equal(t, "<#>", distanceOperator(vectorstore.MetricDotProduct))
}

func TestQuoteIdentEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"my""table"`, quoteIdent(`my"table`))
}

func TestConfigDSNDefaultsPort(t *testing.T) {
	cfg := Config{DBName: "mentals", User: "u", Password: "p", HostAddr: "localhost"}
	assert.Contains(t, cfg.dsn(), "port=5432")
	assert.Contains(t, cfg.dsn(), "dbname=mentals")
}
