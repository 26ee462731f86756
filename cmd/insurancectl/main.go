package main

import (
	"context"

	"github.com/alecthomas/kong"
)

type globals struct {
	Config   string `type:"path" env:"INSURANCE_CONFIG" help:"Path to the YAML configuration file."`
	Email    string `env:"INSURANCE_EMAIL" help:"Login email. Omit to reuse the session stored for --client."`
	Password string `env:"INSURANCE_PASSWORD" help:"Login password."`
	Role     string `enum:"admin,user" default:"admin" help:"Area to act in (admin or user)."`
	Client   string `default:"insurancectl" help:"Client storage namespace holding the CLI session."`
	Verbose  bool   `short:"v" help:"Log telemetry to stderr."`
}

type cli struct {
	Globals globals `embed:""`

	Login     loginCmd     `cmd:"" help:"Log in and keep the session for later commands."`
	Logout    logoutCmd    `cmd:"" help:"End the stored session of --role."`
	Resources resourcesCmd `cmd:"" help:"List the resources --role may access."`
	List      listCmd      `cmd:"" help:"List the records of a resource."`
	Show      showCmd      `cmd:"" help:"Show one record."`
	Create    createCmd    `cmd:"" help:"Create a record from --field name=value pairs."`
	Update    updateCmd    `cmd:"" help:"Update a record from --field name=value pairs."`
	Delete    deleteCmd    `cmd:"" help:"Delete a record."`
	Stats     statsCmd     `cmd:"" help:"Show the admin statistics."`
	Pay       payCmd       `cmd:"" help:"Charge a premium payment."`
	Profile   profileCmd   `cmd:"" help:"Show the signed-in user's profile."`
	Quote     quoteCmd     `cmd:"" help:"Request a quote with the interactive wizard."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("insurancectl"),
		kong.Description("Terminal client for the insurance portal."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}
