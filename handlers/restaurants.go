package handlers

import (
	"math"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"food-ordering/api/models"
)

// listRestaurants godoc
// @Summary Browse restaurants
// @Tags Restaurants
// @Produce json
// @Param filter query string false "nearby, popular or offers"
// @Param lat query number false "Latitude, required for nearby"
// @Param lng query number false "Longitude, required for nearby"
// @Success 200 {array} models.Restaurant
// @Router /restaurants [get]
func (h *Handler) listRestaurants(c *fiber.Ctx) error {
	restaurants, err := h.Restaurants.GetAll(c.UserContext())
	if err != nil {
		return err
	}

	switch c.Query("filter") {
	case "":
	case "nearby":
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
		if latErr != nil || lngErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng are required for nearby restaurants")
		}
		restaurants = nearby(restaurants, lat, lng)
	case "popular":
		restaurants = popular(restaurants)
	case "offers":
		restaurants = withOffers(restaurants)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "filter must be nearby, popular or offers")
	}
	return c.JSON(restaurants)
}

func (h *Handler) getRestaurant(c *fiber.Ctx) error {
	r, err := h.Restaurants.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func nearby(rs []*models.Restaurant, lat, lng float64) []*models.Restaurant {
	for _, r := range rs {
		r.Distance = math.Round(calculateDistance(lat, lng, r.Lat, r.Lng)*10) / 10
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Distance < rs[j].Distance })
	return rs
}

func popular(rs []*models.Restaurant) []*models.Restaurant {
	out := make([]*models.Restaurant, 0, len(rs))
	for _, r := range rs {
		if r.IsPopular {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out
}

func withOffers(rs []*models.Restaurant) []*models.Restaurant {
	out := make([]*models.Restaurant, 0, len(rs))
	for _, r := range rs {
		if r.Offer != "" {
			out = append(out, r)
		}
	}
	return out
}

// calculateDistance is the haversine distance in kilometers.
func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth radius in kilometers

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
