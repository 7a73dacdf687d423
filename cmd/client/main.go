// Command client is a small gRPC client: it watches a room and prints the
// messages as they arrive, or posts one message.
//
//	client -room <id>                 # watch
//	client -room <id> -say "Kumusta"  # post
package main

import (
	"chatrooms/api/chatv1"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type Config struct {
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:50051"`
	Token      string `envconfig:"CHAT_TOKEN" required:"true"`
	// CHAT_COLOURS enables colorized output
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	room := flag.String("room", "", "Room to watch or post to")
	say := flag.String("say", "", "Message to post, watch the room when empty")
	flag.Parse()
	if *room == "" {
		return errors.New("-room is required")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}
	if !cfg.Colours {
		color.Disable()
	}

	conn, err := grpc.NewClient(cfg.ServerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()
	client := chatv1.NewChatServiceClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+cfg.Token)

	if *say != "" {
		msg, err := client.PostMessage(ctx, &chatv1.PostMessageRequest{RoomID: *room, Content: *say})
		if err != nil {
			return err
		}
		printMessage(msg)
		return nil
	}
	return watch(ctx, client, *room)
}

func watch(ctx context.Context, client chatv1.ChatServiceClient, room string) error {
	info, err := client.GetRoom(ctx, &chatv1.RoomRequest{RoomID: room})
	if err != nil {
		return err
	}
	header := fmt.Sprintf("  ====== %s (%s / %s) ======", info.Name, info.Region, info.Province)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	page, err := client.ListMessages(ctx, &chatv1.ListMessagesRequest{RoomID: room, Limit: 20})
	if err != nil {
		return err
	}
	for i := len(page.Messages) - 1; i >= 0; i-- {
		printMessage(&page.Messages[i])
	}

	stream, err := client.Subscribe(ctx, &chatv1.RoomRequest{RoomID: room})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		printMessage(msg)
	}
}

func printMessage(msg *chatv1.Message) {
	body := msg.Text
	if msg.Kind == "image" {
		body = color.Cyan.Sprintf("[image] %s", msg.ImageRef)
	}
	if msg.Censored {
		body = color.Yellow.Sprint(body)
	}
	fmt.Printf("%s %s %s\n",
		color.Gray.Sprintf("#%d %s", msg.Seq, msg.CreatedAt.Local().Format("15:04:05")),
		color.Bold.Sprint(msg.AuthorID+":"),
		body)
}
