// Command embelctl is the command-line client for the embel service.
//
// Usage:
//
//	embelctl submit  -expand notes.txt          # submit text and wait
//	embelctl scan    -summarize p1.png p2.png   # submit images as one note
//	embelctl status  <note-id>
//	embelctl topics  notes.txt
//	embelctl export  <note-id> pdf -o note.pdf
//	embelctl drive   connect|status|disconnect|upload
//	embelctl delete  <note-id>
//
// The server address and bearer token come from EMBEL_URL and EMBEL_TOKEN.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/embelhq/embel/noteclient"
	"github.com/embelhq/embel/notes"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newClient()

	var err error
	switch os.Args[1] {
	case "submit":
		err = cmdSubmit(ctx, c, os.Args[2:])
	case "scan":
		err = cmdScan(ctx, c, os.Args[2:])
	case "status":
		err = cmdStatus(ctx, c, os.Args[2:])
	case "topics":
		err = cmdTopics(ctx, c, os.Args[2:])
	case "export":
		err = cmdExport(ctx, c, os.Args[2:])
	case "drive":
		err = cmdDrive(ctx, c, os.Args[2:])
	case "delete":
		err = cmdDelete(ctx, c, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `embelctl — notes in, polished documents out

usage:
  embelctl submit [flags] <file|->        submit text and wait for the result
  embelctl scan   [flags] <image>...      submit up to 5 images as one note
  embelctl status <note-id>               show processing state
  embelctl topics <file|->                suggest focus topics for text
  embelctl export <note-id> <pdf|docx|txt> [-o file]
  embelctl drive  connect|status|disconnect|upload <note-id> <format>
  embelctl delete <note-id>

environment:
  EMBEL_URL    server base URL (default http://localhost:8080)
  EMBEL_TOKEN  bearer token (required)
`)
}

func newClient() *noteclient.Client {
	base := os.Getenv("EMBEL_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	token := os.Getenv("EMBEL_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "EMBEL_TOKEN is required")
		os.Exit(1)
	}
	return noteclient.New(base, token)
}

// settingsFlags binds the shared enhancement flags onto a flag set.
func settingsFlags(fs *flag.FlagSet) func() (notes.Settings, error) {
	bullets := fs.Bool("bullets", false, "add bullet points")
	headers := fs.Bool("headers", false, "add section headers")
	expand := fs.Bool("expand", false, "expand on the content")
	summarize := fs.Bool("summarize", false, "summarize the content")
	topics := fs.String("topics", "", "comma-separated focus topics")
	flashcards := fs.Int("flashcards", 0, "generate this many flashcards")
	style := fs.String("style", "", "document style: academic, personal, minimalist")
	font := fs.String("font", "", "font preference for exports")
	title := fs.String("title", "", "document title override")
	instructions := fs.String("instructions", "", "custom enhancement instructions")

	return func() (notes.Settings, error) {
		s := notes.Settings{
			AddBulletPoints:    *bullets,
			AddHeaders:         *headers,
			Expand:             *expand,
			Summarize:          *summarize,
			Style:              *style,
			Font:               *font,
			TitleOverride:      *title,
			CustomInstructions: *instructions,
		}
		if *topics != "" {
			for _, t := range strings.Split(*topics, ",") {
				if t = strings.TrimSpace(t); t != "" {
					s.FocusTopics = append(s.FocusTopics, t)
				}
			}
		}
		if *flashcards > 0 {
			s.Flashcards = &notes.FlashcardDirectives{CardCount: *flashcards, Topics: s.FocusTopics}
		}
		if !s.AddBulletPoints && !s.AddHeaders && !s.Expand && !s.Summarize {
			return s, fmt.Errorf("pick at least one of -bullets, -headers, -expand, -summarize")
		}
		return s, nil
	}
}

func readInput(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printProgress(n *notes.Note) {
	msg := n.ProgressMessage
	if msg == "" {
		msg = string(n.Status)
	}
	fmt.Fprintf(os.Stderr, "\r  %3d%%  %-40s", n.Progress, msg)
}

func cmdSubmit(ctx context.Context, c *noteclient.Client, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	settings := settingsFlags(fs)
	fs.Parse(args)

	text, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	s, err := settings()
	if err != nil {
		return err
	}

	n, err := c.SubmitAndWait(ctx, text, s, printProgress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "note %s completed\n\n", n.ID)
	fmt.Println(n.EnhancedContent)
	return nil
}

func cmdScan(ctx context.Context, c *noteclient.Client, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	settings := settingsFlags(fs)
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("scan requires at least one image file")
	}
	var files []noteclient.ImageFile
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, noteclient.ImageFile{Name: filepath.Base(path), Data: data})
	}
	s, err := settings()
	if err != nil {
		return err
	}

	n, err := c.SubmitImagesAndWait(ctx, files, s, printProgress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "note %s completed (%d images)\n\n", n.ID, len(files))
	fmt.Println(n.EnhancedContent)
	return nil
}

func cmdStatus(ctx context.Context, c *noteclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("status requires a note id")
	}
	n, err := c.GetNote(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("id:       %s\n", n.ID)
	fmt.Printf("status:   %s\n", n.Status)
	fmt.Printf("progress: %d%%\n", n.Progress)
	if n.ProgressMessage != "" {
		fmt.Printf("stage:    %s\n", n.ProgressMessage)
	}
	if n.StatusError != "" {
		fmt.Printf("error:    %s\n", n.StatusError)
	}
	for format, loc := range n.Artifacts {
		fmt.Printf("artifact: %s (%s)\n", format, loc)
	}
	return nil
}

func cmdTopics(ctx context.Context, c *noteclient.Client, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	text, err := readInput(path)
	if err != nil {
		return err
	}
	topics, err := c.SuggestTopics(ctx, text)
	if err != nil {
		return err
	}
	for _, t := range topics {
		fmt.Println(t)
	}
	return nil
}

func cmdExport(ctx context.Context, c *noteclient.Client, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "output file (default <note-id>.<format>)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("export requires a note id and a format")
	}
	noteID := fs.Arg(0)
	format, ok := notes.ParseFormat(fs.Arg(1))
	if !ok {
		return fmt.Errorf("unknown format %q (use pdf, docx or txt)", fs.Arg(1))
	}

	data, err := c.DownloadArtifact(ctx, noteID, format)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = noteID + "." + string(format)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func cmdDrive(ctx context.Context, c *noteclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("drive requires a subcommand: connect, status, disconnect, upload")
	}
	switch args[0] {
	case "connect":
		url, err := c.StartDriveConnect(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "open this URL in a browser to authorize:\n\n  %s\n\nwaiting for authorization...\n", url)
		st, err := c.WaitForDriveConnection(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "connected as %s\n", st.Account)
		return nil

	case "status":
		st, err := c.DriveStatus(ctx)
		if err != nil {
			return err
		}
		if st.Connected {
			fmt.Printf("connected (%s)\n", st.Account)
		} else {
			fmt.Println("not connected")
		}
		return nil

	case "disconnect":
		if err := c.DisconnectDrive(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "disconnected")
		return nil

	case "upload":
		if len(args) < 3 {
			return fmt.Errorf("drive upload requires a note id and a format")
		}
		format, ok := notes.ParseFormat(args[2])
		if !ok {
			return fmt.Errorf("unknown format %q", args[2])
		}
		path, err := c.UploadWithReconnect(ctx, args[1], format, func(url string) error {
			fmt.Fprintf(os.Stderr, "drive not connected; open this URL to authorize:\n\n  %s\n\nwaiting...\n", url)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "uploaded to %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown drive subcommand: %s", args[0])
	}
}

func cmdDelete(ctx context.Context, c *noteclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("delete requires a note id")
	}
	if err := c.DeleteNote(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "deleted")
	return nil
}
