package oommsg

import "testing"

func TestOomChDeliversRequestAndResume(t *testing.T) {
	resume := make(chan bool, 1)
	go func() {
		OomCh <- Oommsg_t{Need: 4096, Resume: resume}
	}()
	msg := <-OomCh
	if msg.Need != 4096 {
		t.Fatalf("Need = %d, want 4096", msg.Need)
	}
	msg.Resume <- true
	if ok := <-resume; !ok {
		t.Fatal("expected true on the resume channel")
	}
}
