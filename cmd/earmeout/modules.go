package main

// Compiled-in modules. Each registers itself with core in init().
import (
	_ "github.com/earmeout/earmeout/internal/gateway"
	_ "github.com/earmeout/earmeout/modules/auth/supabase"
	_ "github.com/earmeout/earmeout/modules/provider/gemini"
	_ "github.com/earmeout/earmeout/modules/provider/openai"
	_ "github.com/earmeout/earmeout/modules/retention"
	_ "github.com/earmeout/earmeout/modules/store/sqlstore"
)
