package dashboard

import (
	"math"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

type Stats struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
}

type Summary struct {
	Zones       int                           `json:"zones"`
	PH          Stats                         `json:"ph"`
	Temperature Stats                         `json:"temperature_c"`
	ByStatus    map[entities.HealthStatus]int `json:"by_status"`
}

func summarize(zones []entities.Zone) Summary {
	s := Summary{Zones: len(zones), ByStatus: map[entities.HealthStatus]int{}}
	if len(zones) == 0 {
		return s
	}
	ph := make([]float64, len(zones))
	temp := make([]float64, len(zones))
	for i, z := range zones {
		ph[i] = z.CurrentReading.PH
		temp[i] = z.CurrentReading.TemperatureC
		s.ByStatus[z.Status]++
	}
	s.PH = stats(ph)
	s.Temperature = stats(temp)
	return s
}

func stats(vs []float64) Stats {
	out := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range vs {
		sum += v
		out.Min = math.Min(out.Min, v)
		out.Max = math.Max(out.Max, v)
	}
	out.Mean = sum / float64(len(vs))
	return out
}
