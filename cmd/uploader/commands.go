package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mx-space/paste-uploader/internal/app"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/mx-space/paste-uploader/internal/modules/editor"
	"github.com/mx-space/paste-uploader/internal/modules/processing/markdown"
	appconfigs "github.com/mx-space/paste-uploader/internal/modules/system/core/configs"
	"github.com/mx-space/paste-uploader/internal/pkg/nativelog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// setup loads the config and wires the application for one command.
func setup(c *cli.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	logger, err := nativelog.NewZapLogger(cfg.LogDir(), cfg.IsDev() || c.Bool("debug"))
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}

	application, err := app.New(logger, cfg, app.Options{NoticeOut: c.App.ErrWriter})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return application, logger, nil
}

func pasteCommand() *cli.Command {
	return &cli.Command{
		Name:      "paste",
		Usage:     "paste files into a vault document as if copied from the clipboard",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "doc", Aliases: []string{"d"}, Usage: "vault-relative path of the target document", Required: true},
			&cli.IntFlag{Name: "line", Value: -1, Usage: "cursor line (zero-based); defaults to the end of the document"},
			&cli.IntFlag{Name: "ch", Usage: "cursor column within the line"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one file is required")
			}
			files := make([]*models.Attachment, 0, c.NArg())
			for _, path := range c.Args().Slice() {
				file, err := models.OpenAttachment(path)
				if err != nil {
					return err
				}
				files = append(files, file)
			}

			application, logger, err := setup(c)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer application.Shutdown()

			var cursor *editor.Position
			if line := c.Int("line"); line >= 0 {
				cursor = &editor.Position{Line: line, Ch: c.Int("ch")}
			}

			result, err := application.Session().Paste(c.String("doc"), cursor, files)
			if err != nil {
				return err
			}
			if !result.Prevented {
				fmt.Fprintln(c.App.Writer, "no image attachments, document left unchanged")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "updated %s\n", result.Path)
			printPending(c, result.Pending)
			if len(result.Pending) > 0 {
				return fmt.Errorf("%d upload(s) failed", len(result.Pending))
			}
			return nil
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload a single image and print its Markdown link",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "encoding", Aliases: []string{"e"}, Value: app.EncodingMultipart, Usage: "request encoding: multipart or query"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "vault-relative document path used to pick the album"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("exactly one file is required")
			}
			file, err := models.OpenAttachment(c.Args().First())
			if err != nil {
				return err
			}
			if !file.IsImage() {
				return fmt.Errorf("%s is not an image (%s)", file.Name, file.Type)
			}

			application, logger, err := setup(c)
			if err != nil {
				return err
			}
			defer logger.Sync()

			url, err := application.Upload(context.WithoutCancel(c.Context), file, c.String("encoding"), c.String("path"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, markdown.ImageLink(url))
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "show or change image hosting settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reveal", Usage: "print the API token instead of masking it"},
				},
				Action: func(c *cli.Context) error {
					application, logger, err := setup(c)
					if err != nil {
						return err
					}
					defer logger.Sync()

					settings, err := application.Settings().Get()
					if err != nil {
						return err
					}
					if !c.Bool("reveal") {
						settings.Token = appconfigs.MaskToken(settings.Token)
					}
					out, err := yaml.Marshal(settings)
					if err != nil {
						return err
					}
					_, err = c.App.Writer.Write(out)
					return err
				},
			},
			{
				Name:      "set",
				Usage:     "change one field: " + strings.Join(appconfigs.Fields(), ", "),
				ArgsUsage: "FIELD VALUE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("usage: settings set FIELD VALUE")
					}
					application, logger, err := setup(c)
					if err != nil {
						return err
					}
					defer logger.Sync()

					field := c.Args().Get(0)
					if _, err := application.Settings().Set(field, c.Args().Get(1)); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s saved\n", field)
					return nil
				},
			},
		},
	}
}

func pendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "list upload placeholders left in a document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "doc", Aliases: []string{"d"}, Usage: "vault-relative path of the document", Required: true},
		},
		Action: func(c *cli.Context) error {
			application, logger, err := setup(c)
			if err != nil {
				return err
			}
			defer logger.Sync()

			pending, err := application.Session().Pending(c.String("doc"))
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(c.App.Writer, "no pending uploads")
				return nil
			}
			printPending(c, pending)
			return nil
		},
	}
}

func printPending(c *cli.Context, pending []markdown.Placeholder) {
	for _, p := range pending {
		fmt.Fprintf(c.App.Writer, "pending upload %s on line %d\n", p.Token, p.Line+1)
	}
}
