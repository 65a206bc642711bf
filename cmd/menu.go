package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"food-ordering/api/dashboard"
	"food-ordering/api/feedclient"
	"food-ordering/api/models"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Edit a restaurant's menu live from the terminal",
	Long: `menu opens the owner's menu for a restaurant and keeps it current as other
sessions change it. Commands:

  add <name> | <price> | <category>
  price <item id> <amount>
  rename <item id> <name>
  toggle <item id>
  delete <item id>`,
	// watch binds the same flag names, so bind only for the command that runs.
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID := viper.GetString("restaurant")
		if restaurantID == "" {
			return fmt.Errorf("--restaurant is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := feedclient.New(viper.GetString("api"), viper.GetString("token"))
		return editMenu(ctx, client, restaurantID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	menuCmd.Flags().String("restaurant", "", "restaurant id to edit")
	menuCmd.Flags().String("token", "", "owner session token")
	menuCmd.Flags().String("api", "http://localhost:8080", "API base URL")
}

type menuScreen struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *menuScreen) draw(board *dashboard.MenuBoard) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := board.Items()
	fmt.Fprintf(s.out, "\n== menu (%d) ==\n", len(items))
	for _, item := range items {
		state := "available"
		if !item.IsAvailable {
			state = "sold out"
		}
		fmt.Fprintf(s.out, "%-36s  %-9s  %8s  %-12s  %s\n",
			item.ID, state, item.Price.StringFixed(2), item.Category, item.Name)
	}
}

func (s *menuScreen) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func editMenu(ctx context.Context, source dashboard.MenuSource, restaurantID string, in io.Reader, out io.Writer) error {
	screen := &menuScreen{out: out}
	board := dashboard.NewMenuBoard(source, restaurantID)
	board.OnChange = func() { screen.draw(board) }

	if err := board.Start(ctx); err != nil {
		return err
	}
	defer board.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return nil
			}
			if err := runMenuCommand(ctx, board, line); err != nil {
				screen.printf("error: %v\n", err)
			}
		}
	}
}

func runMenuCommand(ctx context.Context, board *dashboard.MenuBoard, line string) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "":
		return nil
	case "add":
		parts := strings.Split(rest, "|")
		if len(parts) != 3 {
			return fmt.Errorf("expected \"add <name> | <price> | <category>\"")
		}
		name, category := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[2])
		price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid price %q", strings.TrimSpace(parts[1]))
		}
		_, err = board.Create(ctx, models.MenuItemInput{Name: &name, Price: &price, Category: &category})
		return err
	case "price":
		id, amount, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("expected \"price <item id> <amount>\"")
		}
		price, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return fmt.Errorf("invalid price %q", strings.TrimSpace(amount))
		}
		return board.Update(ctx, id, models.MenuItemInput{Price: &price})
	case "rename":
		id, name, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("expected \"rename <item id> <name>\"")
		}
		name = strings.TrimSpace(name)
		return board.Update(ctx, id, models.MenuItemInput{Name: &name})
	case "toggle":
		return board.ToggleAvailability(ctx, rest)
	case "delete":
		return board.Delete(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}
