// Package ytdlp resolves remote track sources into direct media URLs by
// shelling out to the yt-dlp binary.
package ytdlp
