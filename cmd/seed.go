package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"food-ordering/api/auth"
	"food-ordering/api/config"
	"food-ordering/api/models"
	"food-ordering/api/session"
	"food-ordering/api/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo owner, restaurant and menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		b, err := openBackend(cmd.Context(), cfg, false, "")
		if err != nil {
			return err
		}
		defer b.Close()

		s := &seeder{
			backend: b,
			auth: auth.NewService(b.Users, b.Owners, session.NewManager(cfg.JWT.SecretKey, cfg.JWT.TTL, b.Revoker),
				b.Confirmations, auth.Options{}),
			fake: faker.New(),
			out:  cmd.OutOrStdout(),
		}
		return s.run(cmd.Context(), viper.GetString("owner-email"), viper.GetString("owner-password"), viper.GetInt("items"))
	},
}

func init() {
	seedCmd.Flags().String("owner-email", "owner@example.com", "email of the demo owner")
	seedCmd.Flags().String("owner-password", "password", "password of the demo owner")
	seedCmd.Flags().Int("items", 12, "number of menu items to create")
	cobra.CheckErr(viper.BindPFlags(seedCmd.Flags()))
}

var dishes = map[string][]string{
	"Breakfast":   {"Masala Dosa", "Idli Sambar", "Poha", "Aloo Paratha", "Upma"},
	"Starters":    {"Paneer Tikka", "Chicken 65", "Veg Spring Rolls", "Hara Bhara Kebab", "Fish Amritsari"},
	"Main Course": {"Butter Chicken", "Dal Makhani", "Veg Biryani", "Palak Paneer", "Mutton Rogan Josh"},
	"Desserts":    {"Gulab Jamun", "Rasmalai", "Kulfi", "Gajar Halwa", "Jalebi"},
	"Beverages":   {"Masala Chai", "Sweet Lassi", "Filter Coffee", "Nimbu Pani", "Mango Shake"},
}

var nonVegetarian = map[string]bool{
	"Chicken 65": true, "Fish Amritsari": true, "Butter Chicken": true, "Mutton Rogan Josh": true,
}

type seeder struct {
	backend *backend
	auth    *auth.Service
	fake    faker.Faker
	out     io.Writer
}

func (s *seeder) run(ctx context.Context, email, password string, items int) error {
	userID, err := s.owner(ctx, email, password)
	if err != nil {
		return err
	}

	restaurant, err := s.backend.Restaurants.GetByOwnerID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if restaurant == nil {
		restaurant = s.restaurant(userID, email)
		if err := s.backend.Restaurants.Create(ctx, restaurant); err != nil {
			return fmt.Errorf("create restaurant: %w", err)
		}
		fmt.Fprintf(s.out, "Created restaurant %s (%s)\n", restaurant.Name, restaurant.ID)
	}

	for i := 0; i < items; i++ {
		item := s.menuItem(restaurant.ID)
		if err := s.backend.MenuItems.Create(ctx, item); err != nil {
			return fmt.Errorf("create menu item: %w", err)
		}
	}
	fmt.Fprintf(s.out, "Added %d menu items to %s\n", items, restaurant.ID)
	return nil
}

// owner signs the demo owner up, or reuses the account if it exists.
func (s *seeder) owner(ctx context.Context, email, password string) (string, error) {
	res, err := s.auth.SignUp(ctx, email, password, models.RoleOwner, s.fake.Person().Name())
	if errors.Is(err, auth.ErrEmailTaken) {
		user, err := s.backend.Users.GetByEmail(ctx, email)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	}
	if err != nil {
		return "", err
	}
	fmt.Fprintf(s.out, "Created owner %s\n", email)
	return res.User.ID, nil
}

func (s *seeder) restaurant(ownerID, email string) *models.Restaurant {
	r := &models.Restaurant{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         s.fake.Company().Name(),
		Address:      s.fake.Address().Address(),
		ContactEmail: email,
		Phone:        s.fake.Phone().Number(),
		CuisineType:  "Indian",
		Description:  s.fake.Lorem().Sentence(12),
		ImageURL:     models.DefaultMenuImage,
		Lat:          s.fake.Float64(6, 12, 13),
		Lng:          s.fake.Float64(6, 77, 78),
		Rating:       s.fake.Float64(1, 3, 5),
		RatingCount:  s.fake.IntBetween(10, 900),
		DeliveryTime: fmt.Sprintf("%d-%d min", 20, 20+s.fake.IntBetween(5, 25)),
		PriceRange:   s.fake.RandomStringElement([]string{"₹", "₹₹", "₹₹₹"}),
		IsPopular:    s.fake.Bool(),
	}
	if s.fake.Bool() {
		r.Offer = fmt.Sprintf("%d%% off on orders above ₹%d", s.fake.IntBetween(1, 4)*10, s.fake.IntBetween(2, 6)*100)
	}
	return r
}

func (s *seeder) menuItem(restaurantID string) *models.MenuItem {
	category := s.fake.RandomStringElement(models.MenuCategories)
	name := s.fake.RandomStringElement(dishes[category])
	return &models.MenuItem{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         name,
		Description:  s.fake.Lorem().Sentence(8),
		Price:        decimal.NewFromInt(int64(s.fake.IntBetween(4, 60) * 10)),
		Category:     category,
		ImageURL:     models.DefaultMenuImage,
		IsAvailable:  true,
		IsVegetarian: !nonVegetarian[name],
	}
}
