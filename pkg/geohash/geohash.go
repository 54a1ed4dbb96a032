// Package geohash реализует кодирование координат в geohash-строки.
// Общий префикс двух geohash означает пространственную близость точек,
// но обратное для radius-запросов требует точной пост-фильтрации по
// расстоянию (см. Distance).
package geohash

import (
	"math"
	"strings"

	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// base32 — алфавит geohash: цифры и строчные буквы без a, i, l, o.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

var base32Idx = func() map[byte]int {
	m := make(map[byte]int, len(base32))
	for i := 0; i < len(base32); i++ {
		m[base32[i]] = i
	}
	return m
}()

// Encode кодирует координаты в geohash заданной точности.
// Чётные биты берутся из долготы, нечётные — из широты, по 5 бит на символ.
// Результат имеет ровно precision символов; увеличение точности только
// дописывает символы, не меняя уже выданный префикс.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 {
		return ""
	}

	var (
		latMin, latMax = -90.0, 90.0
		lonMin, lonMax = -180.0, 180.0
		sb             strings.Builder
		ch, bit        int
		evenBit        = true // чётный бит — долгота
	)

	for sb.Len() < precision {
		if evenBit {
			mid := (lonMin + lonMax) / 2
			if lon >= mid {
				ch = ch<<1 | 1
				lonMin = mid
			} else {
				ch <<= 1
				lonMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if lat >= mid {
				ch = ch<<1 | 1
				latMin = mid
			} else {
				ch <<= 1
				latMax = mid
			}
		}
		evenBit = !evenBit

		bit++
		if bit == 5 {
			sb.WriteByte(base32[ch])
			bit, ch = 0, 0
		}
	}

	return sb.String()
}

// Box описывает границы ячейки geohash.
type Box struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Center возвращает центр ячейки.
func (b Box) Center() (lat, lon float64) {
	return (b.LatMin + b.LatMax) / 2, (b.LonMin + b.LonMax) / 2
}

// DecodeBox возвращает границы ячейки, закодированной в hash.
func DecodeBox(hash string) (Box, error) {
	if hash == "" {
		return Box{}, e.ErrInvalidGeohash
	}

	box := Box{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}
	evenBit := true

	for i := 0; i < len(hash); i++ {
		idx, ok := base32Idx[hash[i]]
		if !ok {
			return Box{}, e.ErrInvalidGeohash
		}

		for bit := 4; bit >= 0; bit-- {
			one := idx>>bit&1 == 1
			if evenBit {
				mid := (box.LonMin + box.LonMax) / 2
				if one {
					box.LonMin = mid
				} else {
					box.LonMax = mid
				}
			} else {
				mid := (box.LatMin + box.LatMax) / 2
				if one {
					box.LatMin = mid
				} else {
					box.LatMax = mid
				}
			}
			evenBit = !evenBit
		}
	}

	return box, nil
}

// Decode возвращает центр ячейки, закодированной в hash.
func Decode(hash string) (lat, lon float64, err error) {
	box, err := DecodeBox(hash)
	if err != nil {
		return 0, 0, err
	}

	lat, lon = box.Center()
	return lat, lon, nil
}

// Neighbors возвращает 8 соседних ячеек плюс саму ячейку — ограничивающую
// рамку для radius-запросов. Ячейки за полюсами пропускаются, долгота
// переносится через антимеридиан.
func Neighbors(hash string) ([]string, error) {
	box, err := DecodeBox(hash)
	if err != nil {
		return nil, err
	}

	var (
		latC, lonC = box.Center()
		dLat       = box.LatMax - box.LatMin
		dLon       = box.LonMax - box.LonMin
	)

	cells := make([]string, 0, 9)
	seen := make(map[string]struct{}, 9)
	for dy := 1; dy >= -1; dy-- {
		for dx := -1; dx <= 1; dx++ {
			nLat := latC + float64(dy)*dLat
			if nLat > 90 || nLat < -90 {
				continue // за полюсом ячейки нет
			}

			nLon := wrapLongitude(lonC + float64(dx)*dLon)
			cell := Encode(nLat, nLon, len(hash))
			if _, ok := seen[cell]; ok {
				continue
			}
			seen[cell] = struct{}{}
			cells = append(cells, cell)
		}
	}

	return cells, nil
}

// Distance возвращает расстояние между двумя точками в метрах (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000

	var (
		phi1   = lat1 * math.Pi / 180
		phi2   = lat2 * math.Pi / 180
		dPhi   = (lat2 - lat1) * math.Pi / 180
		dLmbda = (lon2 - lon1) * math.Pi / 180
	)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLmbda/2)*math.Sin(dLmbda/2)

	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func wrapLongitude(lon float64) float64 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
