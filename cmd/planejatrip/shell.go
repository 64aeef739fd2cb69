package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/app"
	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/service"
)

const dateLayout = "2006-01-02"

var (
	errUsage = errors.New("usage")
	// errQuiet ends a command that printed its own output.
	errQuiet = errors.New("quiet")
)

// shell is a line-oriented front end for app.Controller. Every command
// runs one controller operation and prints the resulting view.
type shell struct {
	ctl *app.Controller
	out io.Writer
}

type command struct {
	usage string
	run   func(s *shell, ctx context.Context, args string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":     {"help", (*shell).help},
		"register": {"register <name> <email> <password>", (*shell).register},
		"login":    {"login <email> <password>", (*shell).login},
		"logout":   {"logout", (*shell).logout},
		"profile":  {"profile", (*shell).profile},
		"name":     {"name <new display name>", (*shell).rename},
		"password": {"password <current> <new> <confirm>", (*shell).password},
		"new":      {"new <name> | <destination> | <start YYYY-MM-DD> | <end YYYY-MM-DD> | <budget> [| <currency>]", (*shell).newTrip},
		"open":     {"open <trip number>", (*shell).open},
		"show":     {"show", (*shell).show},
		"retitle":  {"retitle <trip name>", (*shell).retitle},
		"conclude": {"conclude", (*shell).conclude},
		"invite":   {"invite <email> [EDIT|VIEW_ONLY]", (*shell).invite},
		"accept":   {"accept <invite number>", (*shell).accept},
		"decline":  {"decline <invite number>", (*shell).decline},
		"resend":   {"resend <invite number>", (*shell).resend},
		"dismiss":  {"dismiss <invite number>", (*shell).dismiss},
	}
}

// run reads commands from in until EOF or "quit".
func (s *shell) run(ctx context.Context, in io.Reader) error {
	s.printView()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}
		s.exec(ctx, line)
	}
}

// exec runs one command line and reports the outcome.
func (s *shell) exec(ctx context.Context, line string) {
	name, args, _ := strings.Cut(line, " ")
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(s.out, "unknown command %q, try help\n", name)
		return
	}
	err := cmd.run(s, ctx, strings.TrimSpace(args))
	switch {
	case errors.Is(err, errQuiet):
	case errors.Is(err, errUsage):
		fmt.Fprintln(s.out, "usage:", cmd.usage)
	case err != nil:
		fmt.Fprintln(s.out, "error:", describe(err))
	default:
		s.printView()
	}
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch domain.KindOf(err) {
	case domain.KindTransient:
		return "the store is unavailable, try again"
	case domain.KindInternal:
		return err.Error()
	}
	return domain.Message(err)
}

func (s *shell) help(context.Context, string) error {
	for _, name := range []string{
		"register", "login", "logout", "profile", "name", "password",
		"new", "open", "show", "retitle", "conclude",
		"invite", "accept", "decline", "resend", "dismiss",
	} {
		fmt.Fprintln(s.out, " ", commands[name].usage)
	}
	fmt.Fprintln(s.out, "  quit")
	return errQuiet
}

func (s *shell) register(ctx context.Context, args string) error {
	f := strings.Fields(args)
	if len(f) < 3 {
		return errUsage
	}
	return s.ctl.Register(ctx, strings.Join(f[:len(f)-2], " "), f[len(f)-2], f[len(f)-1])
}

func (s *shell) login(ctx context.Context, args string) error {
	f := strings.Fields(args)
	if len(f) != 2 {
		return errUsage
	}
	return s.ctl.Login(ctx, f[0], f[1])
}

func (s *shell) logout(ctx context.Context, _ string) error {
	return s.ctl.Logout(ctx)
}

func (s *shell) profile(ctx context.Context, _ string) error {
	return s.ctl.NavigateToProfile(ctx)
}

func (s *shell) rename(ctx context.Context, args string) error {
	if args == "" {
		return errUsage
	}
	return s.ctl.UpdateProfile(ctx, service.ProfileUpdate{Name: args})
}

func (s *shell) password(ctx context.Context, args string) error {
	f := strings.Fields(args)
	if len(f) != 3 {
		return errUsage
	}
	st := s.ctl.State()
	if st.User == nil {
		return app.ErrSignedOut
	}
	return s.ctl.UpdateProfile(ctx, service.ProfileUpdate{
		Name: st.User.Name, CurrentPassword: f[0], NewPassword: f[1], ConfirmPassword: f[2],
	})
}

func (s *shell) newTrip(ctx context.Context, args string) error {
	parts := strings.Split(args, "|")
	if len(parts) < 5 {
		return errUsage
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	start, err := time.Parse(dateLayout, parts[2])
	if err != nil {
		return domain.Invalid("start date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, parts[3])
	if err != nil {
		return domain.Invalid("end date must be YYYY-MM-DD")
	}
	budget, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return domain.Invalid("budget must be a number")
	}
	trip := domain.Trip{Name: parts[0], Destination: parts[1], StartDate: start, EndDate: end, Budget: budget}
	if len(parts) > 5 {
		trip.Currency = domain.Currency(strings.ToUpper(parts[5]))
	}
	if err := s.ctl.NewTrip(); err != nil {
		return err
	}
	_, err = s.ctl.SaveTrip(ctx, trip)
	return err
}

func (s *shell) open(ctx context.Context, args string) error {
	st := s.ctl.State()
	i, err := pick(args, len(st.Trips))
	if err != nil {
		return err
	}
	return s.ctl.SelectTrip(ctx, st.Trips[i].ID)
}

func (s *shell) show(context.Context, string) error {
	trip, ok := s.ctl.SelectedTrip()
	if !ok {
		return domain.Invalid("open a trip first")
	}
	printTrip(s.out, trip)
	return errQuiet
}

func (s *shell) retitle(ctx context.Context, args string) error {
	if args == "" {
		return errUsage
	}
	trip, ok := s.ctl.SelectedTrip()
	if !ok {
		return domain.Invalid("open a trip first")
	}
	trip.Name = args
	return s.ctl.UpdateTrip(ctx, trip)
}

func (s *shell) conclude(ctx context.Context, _ string) error {
	trip, ok := s.ctl.SelectedTrip()
	if !ok {
		return domain.Invalid("open a trip first")
	}
	return s.ctl.ConcludeTrip(ctx, trip.ID)
}

func (s *shell) invite(ctx context.Context, args string) error {
	f := strings.Fields(args)
	if len(f) == 0 || len(f) > 2 {
		return errUsage
	}
	trip, ok := s.ctl.SelectedTrip()
	if !ok {
		return domain.Invalid("open a trip first")
	}
	perm := domain.PermissionViewOnly
	if len(f) == 2 {
		perm = domain.Permission(strings.ToUpper(f[1]))
	}
	if err := s.ctl.Invite(ctx, trip.ID, f[0], perm); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "invite sent to %s\n", f[0])
	return nil
}

func (s *shell) accept(ctx context.Context, args string) error {
	return s.onInvite(args, func(id uuid.UUID) error { return s.ctl.AcceptInvite(ctx, id) })
}

func (s *shell) decline(ctx context.Context, args string) error {
	return s.onInvite(args, func(id uuid.UUID) error { return s.ctl.DeclineInvite(ctx, id) })
}

func (s *shell) resend(ctx context.Context, args string) error {
	return s.onInvite(args, func(id uuid.UUID) error { return s.ctl.ResendInvite(ctx, id) })
}

func (s *shell) dismiss(ctx context.Context, args string) error {
	return s.onInvite(args, func(id uuid.UUID) error { return s.ctl.DismissRejection(ctx, id) })
}

func (s *shell) onInvite(args string, fn func(uuid.UUID) error) error {
	invites := s.ctl.State().Invites
	i, err := pick(args, len(invites))
	if err != nil {
		return err
	}
	return fn(invites[i].ID)
}

// pick parses a 1-based list number.
func pick(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errUsage
	}
	if i < 1 || i > n {
		return 0, domain.Invalid("there is no item %d", i)
	}
	return i - 1, nil
}

// printView renders the controller's current view.
func (s *shell) printView() {
	st := s.ctl.State()
	switch st.View {
	case app.ViewLogin:
		fmt.Fprintln(s.out, "[login] register or login to continue (help lists commands)")
	case app.ViewTripForm:
		fmt.Fprintln(s.out, "[new trip]")
	case app.ViewTripDashboard:
		if trip, ok := s.ctl.SelectedTrip(); ok {
			printTrip(s.out, trip)
		}
	case app.ViewProfile:
		fmt.Fprintf(s.out, "[profile] %s <%s>\n", st.User.Name, st.User.Email)
		fmt.Fprintln(s.out, "trips:")
		if len(st.Trips) == 0 {
			fmt.Fprintln(s.out, "  none yet")
		}
		for i, t := range st.Trips {
			status := ""
			if t.IsCompleted {
				status = " (concluded)"
			}
			fmt.Fprintf(s.out, "  %d. %s, %s, %s to %s%s\n", i+1, t.Name, t.Destination,
				t.StartDate.Format(dateLayout), t.EndDate.Format(dateLayout), status)
		}
		if len(st.Invites) > 0 {
			fmt.Fprintln(s.out, "invites:")
		}
		for i, inv := range st.Invites {
			if inv.Status == domain.InviteRejected {
				fmt.Fprintf(s.out, "  %d. %s declined %q\n", i+1, inv.GuestEmail, inv.TripName)
				continue
			}
			fmt.Fprintf(s.out, "  %d. %s invited you to %q (%s)\n", i+1, inv.HostName, inv.TripName, inv.Permission)
		}
	}
}

func printTrip(w io.Writer, t domain.Trip) {
	fmt.Fprintf(w, "[trip] %s, %s (%s to %s)\n", t.Name, t.Destination,
		t.StartDate.Format(dateLayout), t.EndDate.Format(dateLayout))
	sum := domain.Summarize(t, "")
	fmt.Fprintf(w, "budget %s %.2f, planned %.2f, spent %.2f, remaining %.2f\n",
		t.Currency, t.Budget, sum.TotalEstimated, sum.TotalReal, sum.Remaining)
	for _, p := range t.Participants {
		fmt.Fprintf(w, "  with %s <%s> %s\n", p.Name, p.Email, p.Permission)
	}
	for _, d := range t.Days {
		fmt.Fprintf(w, "  day %d (%s)\n", d.DayNumber, d.Date.Format(dateLayout))
		for _, a := range d.Activities {
			mark := " "
			if a.IsConfirmed {
				mark = "x"
			}
			fmt.Fprintf(w, "    [%s] %s %s, %.2f\n", mark, a.Time, a.Name, a.EstimatedCost)
		}
	}
}
