package main

import (
	"errors"
	"fmt"
	"os"

	"academy/backend/utils"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"gorm.io/gorm"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNoPassword = errors.New("password is required")
)

type admin struct {
	db  *gorm.DB
	log *utils.Logger
}

func (a *admin) app() *cli.App {
	return &cli.App{
		Name:  "academy-admin",
		Usage: "maintenance tasks for the academy database",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Action: func(c *cli.Context) error {
					if err := utils.Migrate(a.db); err != nil {
						return err
					}
					a.log.Info("schema is up to date")
					return nil
				},
			},
			{
				Name:  "adduser",
				Usage: "create a user or reset an existing user's password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "the user's email", Required: true},
					&cli.StringFlag{Name: "name", Usage: "the user's full name"},
					&cli.BoolFlag{Name: "admin", Usage: "grant the admin role"},
				},
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, "Enter password:")
					pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
					fmt.Fprintln(c.App.Writer)
					if err != nil {
						return err
					}
					if len(pwd) == 0 {
						return errNoPassword
					}
					user, err := a.addUser(c.String("email"), c.String("name"), string(pwd), c.Bool("admin"))
					if err != nil {
						return err
					}
					a.log.Info("saved user %d (%s, role %s)", user.ID, user.Email, user.Role)
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "load a course with its chapters, lessons and questions from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "path to the course YAML", Required: true},
				},
				Action: func(c *cli.Context) error {
					course, err := a.seed(c.Context, c.String("file"))
					if err != nil {
						return err
					}
					a.log.Info("seeded course %d %q", course.ID, course.Title)
					return nil
				},
			},
		},
	}
}
