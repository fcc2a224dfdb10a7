package core

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("uicrawler.lib.scrapers.uikit.core")
