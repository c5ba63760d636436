// backend/utils/airports_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAirportCode(t *testing.T) {
	assert.Equal(t, "DEL", NormalizeAirportCode("del"))
	assert.Equal(t, "BOM", NormalizeAirportCode(" bom "))
	assert.Equal(t, "LHR", NormalizeAirportCode("LHR"))
	assert.Equal(t, "", NormalizeAirportCode("   "))
	assert.Equal(t, "", NormalizeAirportCode(""))
}
