package dev

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// evalPackage is the import path the exported symbols live under inside the interpreter
const evalPackage = "github.com/PancyStudios/PancyModlog/internal/commands/dev"

// CreateEvalCommand crea el comando /dev eval
func CreateEvalCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evalúa código Go con acceso al motor de moderación (Peligroso)",
		"dev",
		func(ctx *discord.CommandContext) error {
			return evalHandler(ctx, d)
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código o expresión Go a evaluar",
			Required:    true,
		},
	).AsDev()
}

// stripCodeBlock removes a surrounding markdown code fence
func stripCodeBlock(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

// exports are the values reachable from evaluated code
func exports(ctx *discord.CommandContext, d *shared.Deps) map[string]reflect.Value {
	return map[string]reflect.Value{
		"Ctx":        reflect.ValueOf(ctx),
		"Bot":        reflect.ValueOf(ctx.Client),
		"Session":    reflect.ValueOf(ctx.Session),
		"Store":      reflect.ValueOf(d.Store),
		"Modlog":     reflect.ValueOf(d.Modlog),
		"Moderation": reflect.ValueOf(d.Moderation),
		"Scheduler":  reflect.ValueOf(d.Scheduler),
		"Correlator": reflect.ValueOf(d.Correlator),
		"Config":     reflect.ValueOf(config.Get()),
	}
}

// Eval runs code with symbols available under evalPackage
func Eval(code string, symbols map[string]reflect.Value) (string, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("cargando stdlib: %w", err)
	}
	if err := i.Use(interp.Exports{evalPackage + "/dev": symbols}); err != nil {
		return "", fmt.Errorf("registrando variables: %w", err)
	}
	if _, err := i.Eval(`import . "` + evalPackage + `"`); err != nil {
		return "", fmt.Errorf("importando variables: %w", err)
	}

	res, err := i.Eval(stripCodeBlock(code))
	if err != nil {
		return "", err
	}
	if !res.IsValid() {
		return "nil", nil
	}
	return fmt.Sprintf("%#v", res.Interface()), nil
}

func evalHandler(ctx *discord.CommandContext, d *shared.Deps) error {
	start := time.Now()
	if err := ctx.Defer(); err != nil {
		return err
	}

	out, err := Eval(ctx.GetStringOption("codigo"), exports(ctx, d))
	logger.Debug(fmt.Sprintf("Eval completado en %s", time.Since(start)), "DevEval")
	if err != nil {
		return ctx.EditReply(fmt.Sprintf("❌ **Error de Ejecución:**\n```go\n%v\n```", err))
	}
	if len(out) > 1900 {
		out = out[:1900] + "... (truncado)"
	}
	return ctx.EditReply(fmt.Sprintf("✅ **Resultado:**\n```go\n%s\n```", out))
}
