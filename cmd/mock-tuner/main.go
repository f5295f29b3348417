package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/octonet/internal/tuner"
)

func main() {
	port := flag.Int("port", 8090, "HTTP 포트")
	file := flag.String("file", "testdata/channellist.json", "채널 목록 JSON 파일")
	flag.Parse()

	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read listing: %v\n", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// 실제 튜너처럼 select=json 요청에만 응답
	router.GET("/channellist.lua", func(c *gin.Context) {
		if c.Query("select") != "json" {
			c.String(http.StatusBadRequest, "unsupported select")
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", content)
	})

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("Mock tuner serving %s on %s%s\n", *file, addr, tuner.ListingPath)

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
