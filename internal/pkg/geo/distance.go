package geo

import "math"

// earthRadiusKm é o raio médio da Terra em quilômetros.
const earthRadiusKm = 6371

// Distance calcula a distância de círculo máximo (fórmula de haversine)
// entre duas coordenadas geográficas em graus decimais, em quilômetros.
// Função pura e total: não há modo de falha para entradas finitas. Os
// distribuidores a usam apenas como chave de comparação, então a ordenação
// relativa importa mais que a precisão absoluta.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
